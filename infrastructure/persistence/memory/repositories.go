package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"
)

// CanvasRepository is an in-process ports.CanvasRepository for desktop mode
// and tests
type CanvasRepository struct {
	mu       sync.RWMutex
	canvases map[string]entities.Canvas
}

// NewCanvasRepository creates an empty in-memory canvas repository
func NewCanvasRepository() *CanvasRepository {
	return &CanvasRepository{canvases: make(map[string]entities.Canvas)}
}

var _ ports.CanvasRepository = (*CanvasRepository)(nil)

func (r *CanvasRepository) Create(ctx context.Context, canvas *entities.Canvas) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvases[canvas.CanvasID] = *canvas
	return nil
}

func (r *CanvasRepository) GetByID(ctx context.Context, canvasID string, includeDeleted bool) (*entities.Canvas, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canvas, ok := r.canvases[canvasID]
	if !ok {
		return nil, nil
	}
	if canvas.IsDeleted() && !includeDeleted {
		return nil, nil
	}
	copied := canvas
	return &copied, nil
}

func (r *CanvasRepository) GetByIDForUser(ctx context.Context, canvasID, uid string) (*entities.Canvas, error) {
	canvas, err := r.GetByID(ctx, canvasID, false)
	if err != nil || canvas == nil {
		return nil, err
	}
	if canvas.UID != uid {
		return nil, nil
	}
	return canvas, nil
}

func (r *CanvasRepository) List(ctx context.Context, uid, projectID string, page, pageSize int) ([]*entities.Canvas, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.Canvas
	for _, canvas := range r.canvases {
		if canvas.UID != uid || canvas.IsDeleted() {
			continue
		}
		if projectID != "" && canvas.ProjectID != projectID {
			continue
		}
		copied := canvas
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(result) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (r *CanvasRepository) Update(ctx context.Context, canvas *entities.Canvas) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvases[canvas.CanvasID] = *canvas
	return nil
}

func (r *CanvasRepository) UpdateStatus(ctx context.Context, canvasID string, status entities.CanvasStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[canvasID]
	if !ok {
		return nil
	}
	canvas.Status = status
	canvas.UpdatedAt = time.Now()
	r.canvases[canvasID] = canvas
	return nil
}

func (r *CanvasRepository) SoftDelete(ctx context.Context, canvasID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[canvasID]
	if !ok {
		return nil
	}
	now := time.Now()
	canvas.DeletedAt = &now
	canvas.UpdatedAt = now
	r.canvases[canvasID] = canvas
	return nil
}

// RelationRepository is an in-process ports.RelationRepository
type RelationRepository struct {
	mu        sync.RWMutex
	relations map[relationKey]entities.EntityRelation
}

type relationKey struct {
	canvasID string
	entityID string
}

// NewRelationRepository creates an empty in-memory relation repository
func NewRelationRepository() *RelationRepository {
	return &RelationRepository{relations: make(map[relationKey]entities.EntityRelation)}
}

var _ ports.RelationRepository = (*RelationRepository)(nil)

func (r *RelationRepository) ListActive(ctx context.Context, canvasID string) ([]*entities.EntityRelation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.EntityRelation
	for key, rel := range r.relations {
		if key.canvasID != canvasID || rel.IsDeleted() {
			continue
		}
		copied := rel
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityID < result[j].EntityID
	})
	return result, nil
}

func (r *RelationRepository) ListCanvasIDsForEntities(ctx context.Context, refs []document.EntityRef) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(refs))
	for _, ref := range refs {
		wanted[ref.EntityID] = true
	}

	seen := make(map[string]bool)
	var ids []string
	for key, rel := range r.relations {
		if rel.IsDeleted() || !wanted[key.entityID] || seen[key.canvasID] {
			continue
		}
		seen[key.canvasID] = true
		ids = append(ids, key.canvasID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RelationRepository) CreateMany(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, ref := range refs {
		r.relations[relationKey{canvasID, ref.EntityID}] = entities.EntityRelation{
			CanvasID:   canvasID,
			EntityID:   ref.EntityID,
			EntityType: ref.EntityType,
			CreatedAt:  now,
		}
	}
	return nil
}

func (r *RelationRepository) SoftDeleteMany(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, ref := range refs {
		key := relationKey{canvasID, ref.EntityID}
		rel, ok := r.relations[key]
		if !ok || rel.IsDeleted() {
			continue
		}
		rel.DeletedAt = &now
		r.relations[key] = rel
	}
	return nil
}

func (r *RelationRepository) SoftDeleteAll(ctx context.Context, canvasID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, rel := range r.relations {
		if key.canvasID != canvasID || rel.IsDeleted() {
			continue
		}
		rel.DeletedAt = &now
		r.relations[key] = rel
	}
	return nil
}

// UserRepository is an in-process ports.UserRepository. Desktop mode runs
// single-user, so unknown uids resolve to a synthetic profile.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

// NewUserRepository creates an in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]entities.User)}
}

var _ ports.UserRepository = (*UserRepository)(nil)

// Put stores a user profile
func (r *UserRepository) Put(user entities.User) {
	r.mu.Lock()
	r.users[user.UID] = user
	r.mu.Unlock()
}

func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.users[uid]; ok {
		copied := user
		return &copied, nil
	}
	return &entities.User{UID: uid}, nil
}

// DuplicateRecordRepository is an in-process audit sink
type DuplicateRecordRepository struct {
	mu      sync.Mutex
	records []entities.DuplicateRecord
}

// NewDuplicateRecordRepository creates an in-memory audit repository
func NewDuplicateRecordRepository() *DuplicateRecordRepository {
	return &DuplicateRecordRepository{}
}

var _ ports.DuplicateRecordRepository = (*DuplicateRecordRepository)(nil)

func (r *DuplicateRecordRepository) Create(ctx context.Context, record *entities.DuplicateRecord) error {
	r.mu.Lock()
	r.records = append(r.records, *record)
	r.mu.Unlock()
	return nil
}
