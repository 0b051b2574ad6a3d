package models

import "time"

// AuditLog is an append-only record of a mutating action. Writes are
// best-effort: a failed audit insert never fails the request that caused it.
type AuditLog struct {
	ID           string                 `json:"id"`
	ActorID      string                 `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Payload      map[string]interface{} `json:"payload"`
	CreatedAt    time.Time              `json:"created_at"`
}
