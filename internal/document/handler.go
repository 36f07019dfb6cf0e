package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"inkwell/internal/document/model"
	"inkwell/internal/document/service"
	"inkwell/middleware"
	"inkwell/pkg/httperr"
	"inkwell/pkg/logger"
	"inkwell/socket"
)

type DocumentHandler struct {
	Service *service.DocumentService
	Hub     *socket.Hub
}

func NewDocumentHandler(service *service.DocumentService, hub *socket.Hub) *DocumentHandler {
	return &DocumentHandler{Service: service, Hub: hub}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)

	docs, err := h.Service.List(r.Context(), principal)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for %s: %v", principal, err)
		httperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"docs": docs})
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)

	var req model.CreateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.Invalid("invalid request body"))
		return
	}

	doc, err := h.Service.Create(r.Context(), principal, req)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)
	docID := mux.Vars(r)["id"]

	view, err := h.Service.Get(r.Context(), principal, docID)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)
	docID := mux.Vars(r)["id"]

	var req model.UpdateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.Invalid("invalid request body"))
		return
	}

	if err := h.Service.Update(r.Context(), principal, docID, req); err != nil {
		httperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "document updated"})
}

func (h *DocumentHandler) Grant(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)
	docID := mux.Vars(r)["id"]

	var req model.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.Invalid("invalid request body"))
		return
	}

	if err := h.Service.Grant(r.Context(), principal, docID, req); err != nil {
		httperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "access granted"})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)
	docID := mux.Vars(r)["id"]

	if err := h.Service.Delete(r.Context(), principal, docID); err != nil {
		httperr.Write(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Members(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)
	docID := mux.Vars(r)["id"]

	members, err := h.Service.Members(r.Context(), principal, docID)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// ServeWS joins the caller's connection to a document room. The tier is
// resolved from a fresh store read here, before the upgrade; the room
// manager itself performs no authorization.
func (h *DocumentHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	principal := middleware.Principal(r)

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		httperr.Write(w, httperr.Invalid("missing docId parameter"))
		return
	}

	tier, err := h.Service.TierFor(principal, docID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	if !tier.CanRead() {
		httperr.Write(w, httperr.Forbidden("not a member of this document"))
		return
	}

	socket.ServeWs(h.Hub, w, r, principal, docID, tier)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
