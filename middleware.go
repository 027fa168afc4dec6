package sharekit

import (
	"errors"
	"net/http"
)

// Middleware provides HTTP middleware for share-based access enforcement.
type Middleware struct {
	service      *Service
	getPrincipal func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := sharekit.NewMiddleware(service,
//	    sharekit.WithPrincipalExtractor(func(r *http.Request) string {
//	        return r.Context().Value("user_id").(string)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getPrincipal: defaultGetPrincipal,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithPrincipalExtractor sets a custom function to extract the principal from
// a request. An empty return value means anonymous, which is a valid caller.
func WithPrincipalExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getPrincipal = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetPrincipal(r *http.Request) string {
	return GetPrincipal(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if IsNotFound(err) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if IsForbidden(err) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if IsValidation(err) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// EntityExtractor extracts the protected entity reference from an HTTP
// request. Returning an error wrapping ErrNoEntityRef tells the middleware
// the request addresses no protected entity; it then passes through
// unchecked. Any other error is handled as a failure.
type EntityExtractor func(*http.Request) (EntityRef, error)

// EntityFromParam creates an EntityExtractor that reads the entity ID from
// URL parameters. Compatible with Go 1.22+ ServeMux patterns and routers
// that populate r.PathValue.
//
// Example:
//
//	// For route /documents/{docID}
//	mw.RequireLevel(sharekit.LevelView, sharekit.EntityFromParam("document", "docID"))
func EntityFromParam(entityType, paramName string) EntityExtractor {
	return func(r *http.Request) (EntityRef, error) {
		entityID := r.PathValue(paramName)
		if entityID == "" {
			// Try context (set by router middleware)
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					entityID = s
				}
			}
		}
		if entityID == "" {
			return EntityRef{}, NewError(ErrNoEntityRef, "entity ID not found in request").
				WithEntity(EntityRef{Type: entityType})
		}
		return NewEntityRef(entityType, entityID), nil
	}
}

// EntityFromQuery creates an EntityExtractor that reads the entity ID from
// query parameters.
//
// Example:
//
//	// For route /api/preview?doc_id=doc_123
//	mw.RequireLevel(sharekit.LevelView, sharekit.EntityFromQuery("document", "doc_id"))
func EntityFromQuery(entityType, queryParam string) EntityExtractor {
	return func(r *http.Request) (EntityRef, error) {
		entityID := r.URL.Query().Get(queryParam)
		if entityID == "" {
			return EntityRef{}, NewError(ErrNoEntityRef, "entity ID not found in query").
				WithEntity(EntityRef{Type: entityType})
		}
		return NewEntityRef(entityType, entityID), nil
	}
}

// EntityFromHeader creates an EntityExtractor that reads the entity ID from
// a header.
//
// Example:
//
//	// For header X-Document-ID: doc_123
//	mw.RequireLevel(sharekit.LevelEdit, sharekit.EntityFromHeader("document", "X-Document-ID"))
func EntityFromHeader(entityType, headerName string) EntityExtractor {
	return func(r *http.Request) (EntityRef, error) {
		entityID := r.Header.Get(headerName)
		if entityID == "" {
			return EntityRef{}, NewError(ErrNoEntityRef, "entity ID not found in header").
				WithEntity(EntityRef{Type: entityType})
		}
		return NewEntityRef(entityType, entityID), nil
	}
}

// StaticEntity creates an EntityExtractor that always returns the same
// entity. Useful for singleton resources.
//
// Example:
//
//	mw.RequireLevel(sharekit.LevelAdmin, sharekit.StaticEntity("settings", "global"))
func StaticEntity(entityType, entityID string) EntityExtractor {
	return func(r *http.Request) (EntityRef, error) {
		return NewEntityRef(entityType, entityID), nil
	}
}

// RequireLevel creates middleware that requires a minimum permission level on
// the entity the request addresses. A caller with no effective permission is
// told the resource does not exist (404); a caller with some permission below
// the required level gets 403. Requests the extractor cannot bind to an
// entity pass through unchecked.
//
// Example:
//
//	mux.Handle("GET /documents/{docID}",
//	    mw.RequireLevel(sharekit.LevelView, sharekit.EntityFromParam("document", "docID"))(docHandler))
func (m *Middleware) RequireLevel(level Level, extractor EntityExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := m.getPrincipal(r)

			ref, err := extractor(r)
			if err != nil {
				if errors.Is(err, ErrNoEntityRef) {
					// Request addresses no protected entity
					next.ServeHTTP(w, r)
					return
				}
				m.errorHandler(w, r, err)
				return
			}

			res, err := m.service.Resolve(ctx, ref, principal)
			if err != nil {
				// Store faults fail closed: deny, never allow
				m.errorHandler(w, r, NewError(ErrNotFound, "entity not found").
					WithEntity(ref).
					WithPrincipal(principal))
				return
			}

			if res.Level() == LevelNone {
				// No permission at all reads as nonexistence
				m.errorHandler(w, r, NewError(ErrNotFound, "entity not found").
					WithEntity(ref).
					WithPrincipal(principal))
				return
			}

			if !res.Sufficient(level) {
				m.errorHandler(w, r, NewError(ErrForbidden, "insufficient permission level").
					WithEntity(ref).
					WithPrincipal(principal))
				return
			}

			// Add resolution to context for use in handlers
			ctx = WithPrincipal(ctx, principal)
			ctx = WithResolution(ctx, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadResolution creates middleware that resolves the caller's effective
// level and loads the Resolution into context without enforcing anything.
// Use this when you want to branch on the level in the handler.
//
// Example:
//
//	mux.Handle("GET /documents/{docID}", mw.LoadResolution(extractor)(docHandler))
//
//	func docHandler(w http.ResponseWriter, r *http.Request) {
//	    res := sharekit.FromContext(r.Context())
//	    if res != nil && res.Sufficient(sharekit.LevelEdit) {
//	        // Show editing controls
//	    }
//	}
func (m *Middleware) LoadResolution(extractor EntityExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := m.getPrincipal(r)

			ref, err := extractor(r)
			if err != nil {
				// No entity to resolve, continue without resolution
				next.ServeHTTP(w, r)
				return
			}

			res, err := m.service.Resolve(ctx, ref, principal)
			if err != nil {
				// Continue without resolution rather than failing the request
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithPrincipal(ctx, principal)
			ctx = WithResolution(ctx, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for use in grant operations and
// access logging.
//
// Example:
//
//	handler = mw.InjectAuditContext()(handler)
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Extract source address
			addr := r.Header.Get("X-Forwarded-For")
			if addr == "" {
				addr = r.Header.Get("X-Real-IP")
			}
			if addr == "" {
				addr = r.RemoteAddr
			}
			ctx = WithSourceAddress(ctx, addr)

			// Extract User Agent
			ctx = WithUserAgent(ctx, r.UserAgent())

			// Extract Request ID (commonly set by other middleware)
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			// Set principal and actor from the request if available
			principal := m.getPrincipal(r)
			if principal != "" {
				ctx = WithPrincipal(ctx, principal)
				ctx = WithActorID(ctx, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
