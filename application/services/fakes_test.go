package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
)

// In-memory port implementations shared by the service tests.

type fakeCanvasRepo struct {
	mu       sync.Mutex
	canvases map[string]*entities.Canvas
	failOps  map[string]error
}

func newFakeCanvasRepo() *fakeCanvasRepo {
	return &fakeCanvasRepo{canvases: map[string]*entities.Canvas{}, failOps: map[string]error{}}
}

func (r *fakeCanvasRepo) Create(ctx context.Context, canvas *entities.Canvas) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOps["create"]; err != nil {
		return err
	}
	cp := *canvas
	r.canvases[canvas.CanvasID] = &cp
	return nil
}

func (r *fakeCanvasRepo) GetByID(ctx context.Context, canvasID string, includeDeleted bool) (*entities.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[canvasID]
	if !ok || (!includeDeleted && canvas.IsDeleted()) {
		return nil, nil
	}
	cp := *canvas
	return &cp, nil
}

func (r *fakeCanvasRepo) GetByIDForUser(ctx context.Context, canvasID, uid string) (*entities.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[canvasID]
	if !ok || canvas.UID != uid || canvas.IsDeleted() {
		return nil, nil
	}
	cp := *canvas
	return &cp, nil
}

func (r *fakeCanvasRepo) List(ctx context.Context, uid, projectID string, page, pageSize int) ([]*entities.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Canvas
	for _, canvas := range r.canvases {
		if canvas.UID != uid || canvas.IsDeleted() {
			continue
		}
		if projectID != "" && canvas.ProjectID != projectID {
			continue
		}
		cp := *canvas
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCanvasRepo) Update(ctx context.Context, canvas *entities.Canvas) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *canvas
	r.canvases[canvas.CanvasID] = &cp
	return nil
}

func (r *fakeCanvasRepo) UpdateStatus(ctx context.Context, canvasID string, status entities.CanvasStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[canvasID]
	if !ok {
		return errors.New("canvas not found")
	}
	canvas.Status = status
	return nil
}

func (r *fakeCanvasRepo) SoftDelete(ctx context.Context, canvasID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[canvasID]
	if !ok {
		return errors.New("canvas not found")
	}
	now := time.Now()
	canvas.DeletedAt = &now
	return nil
}

type fakeUserRepo struct {
	users map[string]*entities.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entities.User{}}
}

func (r *fakeUserRepo) GetByUID(ctx context.Context, uid string) (*entities.User, error) {
	user, ok := r.users[uid]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
	failPut error
	failGet error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (s *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, ports.ErrBlobNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type enqueuedJob struct {
	name    string
	payload any
	opts    ports.EnqueueOptions
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	fail error
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobName string, payload any, opts ports.EnqueueOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.jobs = append(q.jobs, enqueuedJob{name: jobName, payload: payload, opts: opts})
	return nil
}

func (q *fakeQueue) byName(name string) []enqueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []enqueuedJob
	for _, job := range q.jobs {
		if job.name == name {
			out = append(out, job)
		}
	}
	return out
}

type fakeFulltextIndex struct {
	mu      sync.Mutex
	docs    map[string]ports.SearchDocument
	deleted []string
}

func newFakeFulltextIndex() *fakeFulltextIndex {
	return &fakeFulltextIndex{docs: map[string]ports.SearchDocument{}}
}

func (f *fakeFulltextIndex) UpsertDocument(ctx context.Context, uid, kind string, doc ports.SearchDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeFulltextIndex) DeleteDocument(ctx context.Context, uid, kind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []ports.CanvasEvent
}

func (p *fakeEventPublisher) Publish(ctx context.Context, event ports.CanvasEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type relationKey struct {
	canvasID string
	entityID string
}

type fakeRelationRepo struct {
	mu        sync.Mutex
	relations map[relationKey]*entities.EntityRelation
}

func newFakeRelationRepo() *fakeRelationRepo {
	return &fakeRelationRepo{relations: map[relationKey]*entities.EntityRelation{}}
}

func (r *fakeRelationRepo) seed(canvasID string, refs ...document.EntityRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		r.relations[relationKey{canvasID, ref.EntityID}] = &entities.EntityRelation{
			CanvasID:   canvasID,
			EntityID:   ref.EntityID,
			EntityType: ref.EntityType,
			CreatedAt:  time.Now(),
		}
	}
}

func (r *fakeRelationRepo) ListActive(ctx context.Context, canvasID string) ([]*entities.EntityRelation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.EntityRelation
	for key, rel := range r.relations {
		if key.canvasID == canvasID && !rel.IsDeleted() {
			cp := *rel
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRelationRepo) ListCanvasIDsForEntities(ctx context.Context, refs []document.EntityRef) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for key, rel := range r.relations {
		if rel.IsDeleted() {
			continue
		}
		for _, ref := range refs {
			if key.entityID == ref.EntityID && !seen[key.canvasID] {
				seen[key.canvasID] = true
				out = append(out, key.canvasID)
			}
		}
	}
	return out, nil
}

func (r *fakeRelationRepo) CreateMany(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		r.relations[relationKey{canvasID, ref.EntityID}] = &entities.EntityRelation{
			CanvasID:   canvasID,
			EntityID:   ref.EntityID,
			EntityType: ref.EntityType,
			CreatedAt:  time.Now(),
		}
	}
	return nil
}

func (r *fakeRelationRepo) SoftDeleteMany(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, ref := range refs {
		if rel, ok := r.relations[relationKey{canvasID, ref.EntityID}]; ok {
			rel.DeletedAt = &now
		}
	}
	return nil
}

func (r *fakeRelationRepo) SoftDeleteAll(ctx context.Context, canvasID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for key, rel := range r.relations {
		if key.canvasID == canvasID && !rel.IsDeleted() {
			rel.DeletedAt = &now
		}
	}
	return nil
}

func (r *fakeRelationRepo) active(canvasID string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for key, rel := range r.relations {
		if key.canvasID == canvasID && !rel.IsDeleted() {
			out[rel.EntityID] = rel.EntityType
		}
	}
	return out
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	releases int
	denyAll  bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]bool{}}
}

func (l *fakeLock) Acquire(ctx context.Context, key string) (ports.ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denyAll || l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	l.acquires++
	release := func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.releases++
		return nil
	}
	return release, true, nil
}

type fakeDuplicateRepo struct {
	mu      sync.Mutex
	records []*entities.DuplicateRecord
}

func (r *fakeDuplicateRepo) Create(ctx context.Context, record *entities.DuplicateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

type fakeEntityDuplicator struct {
	mu      sync.Mutex
	mapping map[string]string
	skip    map[string]bool
	fail    error
	calls   []string
}

func newFakeEntityDuplicator() *fakeEntityDuplicator {
	return &fakeEntityDuplicator{mapping: map[string]string{}, skip: map[string]bool{}}
}

func (d *fakeEntityDuplicator) Duplicate(ctx context.Context, uid, entityID, title string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return "", d.fail
	}
	d.calls = append(d.calls, entityID)
	if d.skip[entityID] {
		return "", nil
	}
	newID, ok := d.mapping[entityID]
	if !ok {
		newID = "dup-" + entityID
	}
	return newID, nil
}

type fakeResultDuplicator struct {
	mu        sync.Mutex
	resultIDs []string
	targets   []string
}

func (d *fakeResultDuplicator) DuplicateActionResults(ctx context.Context, uid string, sourceResultIDs []string, targetCanvasID string, replaceEntityMap map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resultIDs = append(d.resultIDs, sourceResultIDs...)
	d.targets = append(d.targets, targetCanvasID)
	return nil
}

type fakeQuota struct {
	available int
	err       error
	checks    int
}

func (q *fakeQuota) CheckStorageUsage(ctx context.Context, uid string) (int, error) {
	q.checks++
	return q.available, q.err
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics("Test", nil, zap.NewNop())
}
