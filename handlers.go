package sharekit

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Handler exposes the share management HTTP surface: creating, listing,
// updating, and deleting grants, plus the share-access route served by the
// gate. All management routes require an authenticated principal; the
// access route does not.
type Handler struct {
	service      *Service
	gate         *AccessGate
	getPrincipal func(*http.Request) string
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// NewHandler creates the HTTP handler set over a service and gate.
//
// Example:
//
//	handler := sharekit.NewHandler(service, gate,
//	    sharekit.WithHandlerPrincipalExtractor(myAuth.UserID),
//	)
//	http.ListenAndServe(":8080", handler.Routes())
func NewHandler(service *Service, gate *AccessGate, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:      service,
		gate:         gate,
		getPrincipal: defaultGetPrincipal,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// WithHandlerPrincipalExtractor sets a custom function to extract the
// principal from a request.
func WithHandlerPrincipalExtractor(fn func(*http.Request) string) HandlerOption {
	return func(h *Handler) {
		h.getPrincipal = fn
	}
}

// Routes returns a ServeMux with all share routes mounted.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /shares/access/{shareID}", h.gate)
	mux.Handle("POST /shares/access/{shareID}", h.gate)

	mux.HandleFunc("POST /shares", h.createShare)
	mux.HandleFunc("GET /shares/created", h.listCreated)
	mux.HandleFunc("GET /shares/received", h.listReceived)
	mux.HandleFunc("GET /shares/{shareID}", h.getShare)
	mux.HandleFunc("PATCH /shares/{shareID}", h.updateShare)
	mux.HandleFunc("DELETE /shares/{shareID}", h.deleteShare)
	mux.HandleFunc("GET /shares/{shareID}/log", h.getAccessLog)

	return mux
}

type createShareRequest struct {
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	Grantee      string `json:"grantee,omitempty"`
	Public       bool   `json:"public,omitempty"`
	Level        Level  `json:"level"`
	Password     string `json:"password,omitempty"`
	DurationDays int    `json:"duration_days,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (h *Handler) createShare(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewError(ErrValidation, "malformed request body"))
		return
	}

	in := CreateShareInput{
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Grantee:     req.Grantee,
		Public:      req.Public,
		Level:       req.Level,
		Password:    req.Password,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.DurationDays > 0 {
		in.Duration = time.Duration(req.DurationDays) * 24 * time.Hour
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, NewError(ErrValidation, "expires_at must be RFC 3339"))
			return
		}
		in.ExpiresAt = expiresAt
	}

	grant, err := h.service.CreateShare(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, grant)
}

func (h *Handler) listCreated(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	grants, err := h.service.SharesCreatedBy(ctx, GetActorID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if grants == nil {
		grants = []ShareGrant{}
	}
	writeJSON(w, http.StatusOK, grants)
}

func (h *Handler) listReceived(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	grants, err := h.service.SharesReceivedBy(ctx, GetActorID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if grants == nil {
		grants = []ShareGrant{}
	}
	writeJSON(w, http.StatusOK, grants)
}

func (h *Handler) getShare(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	grant, err := h.service.GetShare(ctx, r.PathValue("shareID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if grant.CreatedBy != GetActorID(ctx) {
		// Grants are visible only to their creator through this route.
		writeError(w, NewError(ErrNotFound, "share grant not found").WithShare(grant.ID))
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

type updateShareRequest struct {
	Level        Level   `json:"level,omitempty"`
	Password     *string `json:"password,omitempty"`
	DurationDays int     `json:"duration_days,omitempty"`
	ExpiresAt    string  `json:"expires_at,omitempty"`
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
}

func (h *Handler) updateShare(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req updateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewError(ErrValidation, "malformed request body"))
		return
	}

	in := UpdateShareInput{
		Level:       req.Level,
		Password:    req.Password,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.DurationDays > 0 {
		in.Duration = time.Duration(req.DurationDays) * 24 * time.Hour
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, NewError(ErrValidation, "expires_at must be RFC 3339"))
			return
		}
		in.ExpiresAt = expiresAt
	}

	grant, err := h.service.UpdateShare(ctx, r.PathValue("shareID"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

func (h *Handler) deleteShare(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteShare(ctx, r.PathValue("shareID")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAccessLog(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	shareID := r.PathValue("shareID")
	grant, err := h.service.GetShare(ctx, shareID)
	if err != nil {
		writeError(w, err)
		return
	}
	if grant.CreatedBy != GetActorID(ctx) {
		writeError(w, NewError(ErrNotFound, "share grant not found").WithShare(shareID))
		return
	}

	entries, err := h.service.GetAccessLog(ctx, NewAccessLogFilter().WithShare(shareID))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []AccessLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// requireActor binds the request principal into the context as both
// principal and actor, rejecting unauthenticated callers.
func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	principal := h.getPrincipal(r)
	if principal == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	ctx := WithPrincipal(r.Context(), principal)
	ctx = WithActorID(ctx, principal)
	return ctx, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case IsNotFound(err):
		status = http.StatusNotFound
	case IsForbidden(err):
		status = http.StatusForbidden
	case IsExpired(err):
		status = http.StatusGone
	case IsInvalidPassword(err):
		status = http.StatusUnauthorized
	case IsValidation(err):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
