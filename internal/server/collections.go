package server

import (
	"net/http"
	"strconv"
	"strings"

	"paygate/internal/app"
	"paygate/pkg/domain"
)

type createCollectionRequest struct {
	UserID      string            `json:"userId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	CoverImage  string            `json:"coverImage"`
	AccessType  domain.AccessType `json:"accessType"`
	AccessLimit int               `json:"accessLimit"`
	IsPublished bool              `json:"isPublished"`
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req createCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	collection, err := s.app.CreateCollection(r.Context(), domain.Collection{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CoverImage:  req.CoverImage,
		AccessType:  req.AccessType,
		AccessLimit: req.AccessLimit,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, collection)
}

func (s *Server) handlePublishedCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	list, err := s.app.ListPublishedCollections(r.Context(), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCollectionsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID, ok := pathSuffix(r, "/api/collections/user/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	list, err := s.app.ListCollectionsForUser(userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCollectionByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSuffix(r, "/api/collections/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		collection, err := s.app.GetCollection(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, collection)
	case http.MethodPut:
		if !s.authorized(w, r) {
			return
		}
		var patch app.CollectionPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		collection, err := s.app.UpdateCollection(r.Context(), id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, collection)
	case http.MethodDelete:
		if !s.authorized(w, r) {
			return
		}
		if err := s.app.DeleteCollection(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "collection and contents deleted"})
	default:
		methodNotAllowed(w)
	}
}
