package sharekit

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccessState is a step in the gated share-access flow.
type AccessState int

const (
	// AccessStateStart is the initial state before any check has run.
	AccessStateStart AccessState = iota

	// AccessStateExpired means the grant has lapsed. The caller learns
	// nothing about the entity behind it.
	AccessStateExpired

	// AccessStatePasswordRequired means the grant is password protected and
	// this session has not verified yet.
	AccessStatePasswordRequired

	// AccessStateDenied means the grant targets someone else.
	AccessStateDenied

	// AccessStateGranted means all gates passed and the access was allowed.
	AccessStateGranted
)

// String returns the state name.
func (s AccessState) String() string {
	switch s {
	case AccessStateStart:
		return "start"
	case AccessStateExpired:
		return "expired"
	case AccessStatePasswordRequired:
		return "password_required"
	case AccessStateDenied:
		return "denied"
	case AccessStateGranted:
		return "granted"
	default:
		return "unknown"
	}
}

// AccessResult is the outcome of evaluating one share access.
type AccessResult struct {
	State AccessState

	// Grant is the consumed grant. Nil until the grant is loaded.
	Grant *ShareGrant

	// Entity is the shared entity, populated only on AccessStateGranted.
	Entity Entity

	// Level is the permission level conferred by the grant.
	Level Level

	// PasswordRequired reports whether the password gate was involved in
	// this access (verified now or in a previous request of the session).
	PasswordRequired bool

	// LogEntry is the appended access log record, populated only when the
	// access was granted and recorded.
	LogEntry *AccessLogEntry
}

// SessionCookieName is the cookie carrying the anonymous session identifier
// used to scope password verifications.
const SessionCookieName = "sharekit_session"

// AccessGate serves the share-access route: the flow a caller goes through
// when opening a share link. Checks run in a fixed order: expiry first, then
// the password gate, then the access is granted and logged.
type AccessGate struct {
	service      *Service
	sessions     SessionVerifier
	limiter      *PasswordLimiter
	render       func(http.ResponseWriter, *http.Request, *AccessResult)
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// AccessGateOption configures the AccessGate.
type AccessGateOption func(*AccessGate)

// NewAccessGate creates a gate over the service. By default verifications
// live in process memory and granted accesses render as JSON.
//
// Example:
//
//	gate := sharekit.NewAccessGate(service,
//	    sharekit.WithSessionVerifier(sharekit.NewStoreSessionVerifier(db)),
//	)
//	mux.Handle("GET /shares/access/{shareID}", gate)
//	mux.Handle("POST /shares/access/{shareID}", gate)
func NewAccessGate(service *Service, opts ...AccessGateOption) *AccessGate {
	g := &AccessGate{
		service:      service,
		sessions:     NewMemorySessionVerifier(),
		limiter:      NewPasswordLimiter(),
		render:       defaultAccessRender,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// WithSessionVerifier sets the store for password session verifications.
func WithSessionVerifier(v SessionVerifier) AccessGateOption {
	return func(g *AccessGate) {
		g.sessions = v
	}
}

// WithPasswordLimiter sets the rate limiter for password attempts.
func WithPasswordLimiter(l *PasswordLimiter) AccessGateOption {
	return func(g *AccessGate) {
		g.limiter = l
	}
}

// WithAccessRenderer sets a custom renderer for granted accesses and
// password prompts.
func WithAccessRenderer(fn func(http.ResponseWriter, *http.Request, *AccessResult)) AccessGateOption {
	return func(g *AccessGate) {
		g.render = fn
	}
}

// WithAccessErrorHandler sets a custom error handler for the gate.
func WithAccessErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) AccessGateOption {
	return func(g *AccessGate) {
		g.errorHandler = fn
	}
}

// Evaluate runs the gate checks for one grant without touching the request
// or recording anything. Password is the attempt supplied by the caller,
// empty when none was given. The caller's principal, session ID, and source
// address come from the context.
//
// The returned error is non-nil only for a failed password attempt
// (ErrInvalidPassword, also used when attempts are throttled); every other
// outcome is expressed in the result state alone.
func (g *AccessGate) Evaluate(ctx context.Context, grant *ShareGrant, password string) (*AccessResult, error) {
	principal := GetPrincipal(ctx)
	now := time.Now()
	result := &AccessResult{State: AccessStateStart, Grant: grant, Level: grant.Level}

	// Expiry is checked before anything else so an expired link reveals
	// nothing, not even that a password exists.
	if grant.IsExpired(now) {
		result.State = AccessStateExpired
		return result, nil
	}

	if !grant.AccessibleBy(principal, now) {
		result.State = AccessStateDenied
		return result, nil
	}

	// The creator never faces their own password gate.
	if grant.HasPassword() && principal != grant.CreatedBy {
		result.PasswordRequired = true
		sessionID := GetSessionID(ctx)

		if !g.sessions.IsVerified(ctx, sessionID, grant.ID) {
			if password == "" {
				result.State = AccessStatePasswordRequired
				return result, nil
			}

			if g.limiter != nil && !g.limiter.Allow(grant.ID, GetSourceAddress(ctx)) {
				result.State = AccessStatePasswordRequired
				return result, NewError(ErrInvalidPassword, "too many password attempts, slow down").
					WithShare(grant.ID)
			}

			if bcrypt.CompareHashAndPassword([]byte(grant.PasswordHash), []byte(password)) != nil {
				result.State = AccessStatePasswordRequired
				return result, NewError(ErrInvalidPassword, "incorrect share password").
					WithShare(grant.ID)
			}

			if sessionID != "" {
				if err := g.sessions.MarkVerified(ctx, sessionID, grant.ID); err != nil {
					return result, err
				}
			}
		}
	}

	result.State = AccessStateGranted
	return result, nil
}

// ServeHTTP handles GET and POST on the share-access route. The route
// pattern must expose the grant ID as the "shareID" path value:
//
//	mux.Handle("GET /shares/access/{shareID}", gate)
//	mux.Handle("POST /shares/access/{shareID}", gate)
//
// GET walks the gates and either renders the entity, prompts for a password
// (401), or reports the link gone (410). POST carries a password attempt in
// the "password" form field.
func (g *AccessGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shareID := r.PathValue("shareID")
	if shareID == "" {
		g.errorHandler(w, r, NewError(ErrNotFound, "share grant not found"))
		return
	}

	grant, err := g.service.GetShare(ctx, shareID)
	if err != nil {
		// Unknown and unreadable grants look the same from outside.
		g.errorHandler(w, r, NewError(ErrNotFound, "share grant not found").WithShare(shareID))
		return
	}

	ctx = WithSessionID(ctx, g.ensureSession(w, r))

	password := ""
	if r.Method == http.MethodPost {
		password = r.PostFormValue("password")
	}

	result, err := g.Evaluate(ctx, grant, password)

	switch result.State {
	case AccessStateExpired:
		// Gone, with no hint of what was behind the link. No log entry is
		// written for expired accesses.
		http.Error(w, "This share link has expired", http.StatusGone)
		return

	case AccessStateDenied:
		g.errorHandler(w, r, NewError(ErrNotFound, "share grant not found").WithShare(shareID))
		return

	case AccessStatePasswordRequired:
		w.WriteHeader(http.StatusUnauthorized)
		g.render(w, r.WithContext(ctx), result)
		return

	case AccessStateGranted:
		// The log entry is the authoritative record of the access; if it
		// cannot be written the access does not happen.
		entry, logErr := g.service.RecordAccess(ctx, grant, result.PasswordRequired)
		if logErr != nil {
			g.errorHandler(w, r, logErr)
			return
		}
		result.LogEntry = entry

		entity, lookupErr := g.service.Registry().LookupEntity(ctx, grant.EntityRef())
		if lookupErr != nil {
			// The grant outlived its entity
			g.errorHandler(w, r, NewError(ErrNotFound, "shared entity not found").WithShare(shareID))
			return
		}
		result.Entity = entity

		g.render(w, r.WithContext(ctx), result)
		return

	default:
		if err == nil {
			err = NewError(ErrForbidden, "share access denied").WithShare(shareID)
		}
		g.errorHandler(w, r, err)
	}
}

// ensureSession reads the session cookie, minting and setting one when the
// caller has none yet.
func (g *AccessGate) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

type accessResponse struct {
	State            string `json:"state"`
	PasswordRequired bool   `json:"password_required,omitempty"`
	Error            string `json:"error,omitempty"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Level       string `json:"level,omitempty"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
}

func defaultAccessRender(w http.ResponseWriter, r *http.Request, result *AccessResult) {
	w.Header().Set("Content-Type", "application/json")

	resp := accessResponse{State: result.State.String()}

	switch result.State {
	case AccessStatePasswordRequired:
		resp.PasswordRequired = true
		if r.Method == http.MethodPost {
			resp.Error = "incorrect share password"
		}
	case AccessStateGranted:
		resp.Level = result.Level.String()
		resp.Name = result.Grant.Name
		resp.Description = result.Grant.Description
		if result.Entity != nil {
			resp.Title = result.Entity.DisplayTitle()
			resp.URL = result.Entity.ShareURL()
			if resp.Description == "" {
				resp.Description = result.Entity.DisplayDescription()
			}
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
