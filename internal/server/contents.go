package server

import (
	"net/http"
	"strings"

	"paygate/internal/app"
	"paygate/pkg/domain"
)

type createContentRequest struct {
	CollectionID string          `json:"collectionId"`
	UserID       string          `json:"userId"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	FileType     domain.FileType `json:"fileType"`
	StorageKey   string          `json:"storageKey"`
	Order        *int            `json:"order"`
}

type reorderContentsRequest struct {
	CollectionID string   `json:"collectionId"`
	ContentOrder []string `json:"contentOrder"`
}

func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req createContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	content := domain.Content{
		CollectionID: req.CollectionID,
		UserID:       req.UserID,
		Title:        req.Title,
		Description:  req.Description,
		FileType:     req.FileType,
		StorageKey:   req.StorageKey,
	}
	if req.Order != nil {
		content.Order = *req.Order
	}
	created, err := s.app.CreateContent(content, req.Order != nil)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleReorderContents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req reorderContentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.ReorderContents(r.Context(), req.CollectionID, req.ContentOrder); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "contents reordered"})
}

func (s *Server) handleContentsByCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	collectionID, ok := pathSuffix(r, "/api/contents/collection/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	list, err := s.app.ListContentsForCollection(collectionID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleContentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/contents/")
	if rest == "" || rest == r.URL.Path {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if id, found := strings.CutSuffix(rest, "/download"); found && !strings.Contains(id, "/") && id != "" {
		s.handleContentDownload(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := rest
	switch r.Method {
	case http.MethodGet:
		content, err := s.app.GetContent(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, content)
	case http.MethodPut:
		if !s.authorized(w, r) {
			return
		}
		var patch app.ContentPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		content, err := s.app.UpdateContent(id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, content)
	case http.MethodDelete:
		if !s.authorized(w, r) {
			return
		}
		if err := s.app.DeleteContent(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "content deleted"})
	default:
		methodNotAllowed(w)
	}
}

// handleContentDownload issues a short-lived URL for a content file. When a
// token verifier is configured the requester is the token subject; otherwise
// the userId query parameter names the requester.
func (s *Server) handleContentDownload(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if s.tokenVerifier != nil {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		subject, err := s.tokenVerifier.VerifySubject(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID = subject
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	url, err := s.app.ContentDownloadURL(r.Context(), id, userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
