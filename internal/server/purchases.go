package server

import (
	"net/http"
	"strings"

	"paygate/pkg/domain"
)

type createPurchaseRequest struct {
	UserID        string            `json:"userId"`
	CollectionID  string            `json:"collectionId"`
	Amount        float64           `json:"amount"`
	PaymentMethod string            `json:"paymentMethod"`
	PaymentID     string            `json:"paymentId"`
	PaymentMeta   map[string]string `json:"paymentMeta"`
	Status        string            `json:"status"`
}

type accessRequest struct {
	UserID       string `json:"userId"`
	CollectionID string `json:"collectionId"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.purchaseLimiter, "too many purchase attempts") {
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req createPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	purchase, err := s.app.CreatePurchase(r.Context(), domain.Purchase{
		UserID:        req.UserID,
		CollectionID:  req.CollectionID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentID:     req.PaymentID,
		PaymentMeta:   req.PaymentMeta,
		Status:        domain.PurchaseStatus(req.Status),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

func (s *Server) handlePurchasesByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID, ok := pathSuffix(r, "/api/purchases/user/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	list, err := s.app.ListPurchasesForUser(userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleAccessCheck serves GET /api/purchases/access?userId=&collectionId=.
// Missing parameters are a 400; absence of an entitling purchase is a plain
// {"hasAccess": false}.
func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	collectionID := strings.TrimSpace(r.URL.Query().Get("collectionId"))
	if userID == "" || collectionID == "" {
		writeError(w, http.StatusBadRequest, "userId and collectionId are required")
		return
	}
	allowed, err := s.app.CheckAccess(userID, collectionID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasAccess": allowed})
}

// handleDecrementViews burns one view from the caller's completed purchase.
// viewsRemaining is null when no counter applies.
func (s *Server) handleDecrementViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req accessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	remaining, err := s.app.DecrementViews(strings.TrimSpace(req.UserID), strings.TrimSpace(req.CollectionID))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*int{"viewsRemaining": remaining})
}

// handlePurchaseByID serves PUT /api/purchases/{id}/status.
func (s *Server) handlePurchaseByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/purchases/")
	id, found := strings.CutSuffix(rest, "/status")
	if !found || id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	if !s.authorized(w, r) {
		return
	}
	var req statusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	purchase, err := s.app.SetPurchaseStatus(r.Context(), id, domain.PurchaseStatus(req.Status))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchase)
}
