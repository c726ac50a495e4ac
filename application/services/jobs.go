package services

import (
	"time"

	"canvas-backend/domain/core/document"
)

// Job names dispatched through the task queue
const (
	JobVerifyNodeAddition = "verifyNodeAddition"
	JobPostDeleteCanvas   = "postDeleteCanvas"
	JobDeleteEntity       = "deleteEntity"
)

// Verification schedule: first check 2s after insertion, then linear
// backoff (base delay scaled by the attempt number) up to three attempts.
const (
	verifyMaxAttempts = 3
	verifyBaseDelay   = 2 * time.Second
)

// VerifyNodeAdditionJob is the payload of a scheduled verification pass.
// Ephemeral: it lives only in the queue, never in a table.
type VerifyNodeAdditionJob struct {
	UID         string                `json:"uid"`
	CanvasID    string                `json:"canvasId"`
	Node        document.Node         `json:"node"`
	ConnectTo   []document.NodeFilter `json:"connectTo,omitempty"`
	Attempt     int                   `json:"attempt"`
	MaxAttempts int                   `json:"maxAttempts"`
}

// PostDeleteCanvasJob is the payload of the asynchronous canvas cleanup pass
type PostDeleteCanvasJob struct {
	UID            string `json:"uid"`
	CanvasID       string `json:"canvasId"`
	DeleteAllFiles bool   `json:"deleteAllFiles"`
}

// DeleteEntityJob asks the knowledge subsystem to delete one cascaded entity
type DeleteEntityJob struct {
	UID        string `json:"uid"`
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
}
