package model

import (
	"encoding/json"
	"time"
)

// Document is the authoritative record for access decisions: owner, editors
// and viewers on the document itself decide a caller's tier, not the
// per-user reference index.
type Document struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	Owner     string          `json:"owner"`
	Editors   []string        `json:"editors"`
	Viewers   []string        `json:"viewers"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DocumentSummary is one row of a principal's document list.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	UpdatedAt time.Time `json:"updated_at"`
	IsOwner   bool      `json:"is_owner"`
}

// DocumentView is a document plus the tier the caller holds on it.
type DocumentView struct {
	Document
	Tier string `json:"tier"`
}

type MemberInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Tier  string `json:"tier"`
}

type CreateDocRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type UpdateDocRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type GrantRequest struct {
	Email string `json:"email"`
	Tier  string `json:"tier"`
}
