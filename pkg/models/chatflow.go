// Package models defines the domain models for the chatflow service
package models

import (
	"encoding/json"
	"time"
)

// Chatflow statuses. A chatflow whose schema has not been generated yet is
// still DRAFT; "running" is inferred from the schema, never stored.
const (
	ChatflowStatusDraft     = "DRAFT"
	ChatflowStatusPublished = "PUBLISHED"
)

// Chatflow is a named, schema-defined conversational data-collection form
// owned by a workspace.
type Chatflow struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspaceId"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
	Status      string                 `json:"status"`
	ShareURL    string                 `json:"shareUrl"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// FormField is a single typed field in a chatflow schema.
type FormField struct {
	Type     string   `json:"type"`
	Label    string   `json:"label"`
	Name     string   `json:"name,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// FormSchema is the ordered field list a chatflow renders as a conversation.
type FormSchema struct {
	Fields []FormField `json:"fields"`
}

// AsMap converts the schema into the generic representation stored in the
// chatflows table.
func (s FormSchema) AsMap() map[string]interface{} {
	raw, err := json.Marshal(s)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

// SchemaGenerated reports whether a stored schema holds a usable field list.
// An empty schema, or one whose fields are missing a type or label, means the
// background generation has not produced a result yet.
func SchemaGenerated(schema map[string]interface{}) bool {
	if len(schema) == 0 {
		return false
	}
	raw, ok := schema["fields"].([]interface{})
	if !ok || len(raw) == 0 {
		return false
	}
	for _, f := range raw {
		field, ok := f.(map[string]interface{})
		if !ok {
			return false
		}
		if t, _ := field["type"].(string); t == "" {
			return false
		}
		if l, _ := field["label"].(string); l == "" {
			return false
		}
	}
	return true
}

// ChatflowListItem is the flattened view record returned by the list endpoint.
type ChatflowListItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	Submissions   int    `json:"submissions"`
	WorkspaceName string `json:"workspaceName"`
	WorkspaceSlug string `json:"workspaceSlug"`
	Date          string `json:"date"`
	RawDate       string `json:"rawDate"`
}

// Submission is a single response collected by a published chatflow.
type Submission struct {
	ID         string                 `json:"id"`
	ChatflowID string                 `json:"chatflowId"`
	Data       map[string]interface{} `json:"data"`
	CreatedAt  time.Time              `json:"createdAt"`
}
