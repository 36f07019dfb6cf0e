package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/document/model"
	"inkwell/internal/document/repository"
	"inkwell/pkg/cache"
	"inkwell/pkg/httperr"
	"inkwell/socket"
)

const emptyContent = `{"ops":[]}`

// Hub is the slice of the room manager the service needs. The service only
// notifies it after a mutation is durably persisted; live fan-out failures
// never roll anything back.
type Hub interface {
	Publish(msg socket.Message)
	RemoveDocument(docID string)
}

// DocumentService orchestrates every document operation: resolve the
// caller's tier from a fresh or cached document snapshot, serve or mutate
// through the store, invalidate the affected cache keys strictly after the
// mutation commits, then notify the live room.
type DocumentService struct {
	Repo  *repository.DocumentRepository
	Cache cache.Cache
	Hub   Hub
	TTL   time.Duration
}

func NewDocumentService(repo *repository.DocumentRepository, c cache.Cache, hub Hub, ttl time.Duration) *DocumentService {
	return &DocumentService{Repo: repo, Cache: c, Hub: hub, TTL: ttl}
}

// List returns the caller's reachable documents, cache-aside on the
// per-principal list key.
func (s *DocumentService) List(ctx context.Context, principal string) ([]model.DocumentSummary, error) {
	if _, err := s.Repo.GetUserName(principal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.NotFound("user not found")
		}
		return nil, httperr.Internal(err)
	}

	key := cache.ListKey(principal)
	if raw, ok := s.Cache.Get(ctx, key); ok {
		var docs []model.DocumentSummary
		if err := json.Unmarshal(raw, &docs); err == nil {
			return docs, nil
		}
		// Undecodable entries are treated as misses and overwritten below.
	}

	docs, err := s.Repo.ListByUser(principal)
	if err != nil {
		return nil, httperr.Internal(err)
	}

	if raw, err := json.Marshal(docs); err == nil {
		s.Cache.Set(ctx, key, raw, s.TTL)
	}
	return docs, nil
}

// Create makes the caller the owner of a fresh document. Any authenticated
// principal may create; there is no tier to check yet.
func (s *DocumentService) Create(ctx context.Context, principal string, req model.CreateDocRequest) (*model.Document, error) {
	if req.Title == "" {
		return nil, httperr.Invalid("title is required")
	}
	content := req.Content
	if len(content) == 0 {
		content = json.RawMessage(emptyContent)
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   content,
		Owner:     principal,
		Editors:   []string{},
		Viewers:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(doc); err != nil {
		return nil, httperr.Internal(err)
	}

	s.Cache.Delete(ctx, cache.ListKey(principal))
	return doc, nil
}

// Get serves a document to any member, cache-aside on the document key. The
// caller's tier is derived from the same snapshot that serves the content,
// so permissions can never be staler than the data they guard.
func (s *DocumentService) Get(ctx context.Context, principal, docID string) (*model.DocumentView, error) {
	key := cache.DocumentKey(docID)
	if raw, ok := s.Cache.Get(ctx, key); ok {
		var doc model.Document
		if err := json.Unmarshal(raw, &doc); err == nil {
			return s.viewFor(&doc, principal)
		}
	}

	doc, err := s.fetch(docID)
	if err != nil {
		return nil, err
	}
	view, err := s.viewFor(doc, principal)
	if err != nil {
		return nil, err
	}

	// Populate only after authorization succeeded.
	if raw, err := json.Marshal(doc); err == nil {
		s.Cache.Set(ctx, key, raw, s.TTL)
	}
	return view, nil
}

// Update persists new content/title for editors and above, invalidates every
// key the mutation could have staled, then fans the snapshot out to the
// document's room. Tier comes from a fresh store read, never the cache.
func (s *DocumentService) Update(ctx context.Context, principal, docID string, req model.UpdateDocRequest) error {
	if req.Title == "" || len(req.Content) == 0 || string(req.Content) == "null" {
		return httperr.Invalid("title and content are required")
	}

	doc, err := s.fetch(docID)
	if err != nil {
		return err
	}
	if !model.TierOf(doc, principal).CanWrite() {
		return httperr.Forbidden("viewer cannot make changes")
	}

	if err := s.Repo.UpdateContent(docID, req.Title, req.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("document not found")
		}
		return httperr.Internal(err)
	}

	keys := append(s.memberListKeys(doc), cache.DocumentKey(docID))
	s.Cache.Delete(ctx, keys...)

	s.Hub.Publish(socket.Message{
		Type:      socket.UpdateType,
		DocID:     docID,
		Principal: principal,
		Payload:   req.Content,
	})
	return nil
}

// Grant adds a principal as editor or viewer. Owner only.
func (s *DocumentService) Grant(ctx context.Context, principal, docID string, req model.GrantRequest) error {
	tier, err := model.ParseTier(req.Tier)
	if err != nil {
		return err
	}

	doc, err := s.fetch(docID)
	if err != nil {
		return err
	}
	if doc.Owner != principal {
		return httperr.Forbidden("only the owner can grant access")
	}

	if _, err := s.Repo.GetUserName(req.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("user not found")
		}
		return httperr.Internal(err)
	}

	if req.Email == doc.Owner {
		return httperr.Conflict("owner cannot be added as editor or viewer")
	}
	if model.TierOf(doc, req.Email) != model.TierNone {
		return httperr.Conflict("user already has access")
	}

	if err := s.Repo.Grant(docID, req.Email, tier.String()); err != nil {
		return httperr.Internal(err)
	}

	s.Cache.Delete(ctx,
		cache.DocumentKey(docID),
		cache.ListKey(req.Email),
		cache.ListKey(doc.Owner),
	)
	return nil
}

// Delete removes a document and everything that references it: access rows,
// every member's reference-index row, the cached snapshot and every former
// member's cached list. Owner only. The live room is torn down last.
func (s *DocumentService) Delete(ctx context.Context, principal, docID string) error {
	doc, err := s.fetch(docID)
	if err != nil {
		return err
	}
	if doc.Owner != principal {
		return httperr.Forbidden("only the owner can delete this document")
	}

	if err := s.Repo.DeleteCascade(docID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("document not found")
		}
		return httperr.Internal(err)
	}

	keys := append(s.memberListKeys(doc), cache.DocumentKey(docID))
	s.Cache.Delete(ctx, keys...)

	s.Hub.RemoveDocument(docID)
	return nil
}

// Members lists the owner and every granted principal. Visible to any member.
func (s *DocumentService) Members(ctx context.Context, principal, docID string) ([]model.MemberInfo, error) {
	doc, err := s.fetch(docID)
	if err != nil {
		return nil, err
	}
	if !model.TierOf(doc, principal).CanRead() {
		return nil, httperr.Forbidden("not a member of this document")
	}
	members, err := s.Repo.Members(docID)
	if err != nil {
		return nil, httperr.Internal(err)
	}
	return members, nil
}

// TierFor resolves the caller's tier from a fresh store read. The websocket
// join path uses it before upgrading a connection.
func (s *DocumentService) TierFor(principal, docID string) (model.Tier, error) {
	doc, err := s.fetch(docID)
	if err != nil {
		return model.TierNone, err
	}
	return model.TierOf(doc, principal), nil
}

func (s *DocumentService) fetch(docID string) (*model.Document, error) {
	doc, err := s.Repo.GetByID(docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.NotFound("document not found")
		}
		return nil, httperr.Internal(err)
	}
	return doc, nil
}

func (s *DocumentService) viewFor(doc *model.Document, principal string) (*model.DocumentView, error) {
	tier := model.TierOf(doc, principal)
	if !tier.CanRead() {
		return nil, httperr.Forbidden("not a member of this document")
	}
	return &model.DocumentView{Document: *doc, Tier: tier.String()}, nil
}

func (s *DocumentService) memberListKeys(doc *model.Document) []string {
	keys := []string{cache.ListKey(doc.Owner)}
	for _, e := range doc.Editors {
		keys = append(keys, cache.ListKey(e))
	}
	for _, v := range doc.Viewers {
		keys = append(keys, cache.ListKey(v))
	}
	return keys
}
