package sharekit

import (
	"context"
)

// Context keys for ShareKit values.
type contextKey string

const (
	contextKeyPrincipal  contextKey = "sharekit:principal"
	contextKeyActorID    contextKey = "sharekit:actor_id"
	contextKeySourceAddr contextKey = "sharekit:source_address"
	contextKeyUserAgent  contextKey = "sharekit:user_agent"
	contextKeyRequestID  contextKey = "sharekit:request_id"
	contextKeyResolution contextKey = "sharekit:resolution"
	contextKeySessionID  contextKey = "sharekit:session_id"
)

// WithPrincipal adds the requesting principal to the context.
// An absent or empty principal means the caller is anonymous; anonymous
// callers can still reach public grants.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, principal)
}

// GetPrincipal retrieves the principal from context.
// Returns empty string for anonymous callers.
func GetPrincipal(ctx context.Context) string {
	if v := ctx.Value(contextKeyPrincipal); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithActorID adds an actor ID to the context. This is the principal
// performing a management operation (create/edit/delete of grants).
// Usually the same as the principal, but can differ for admin tooling.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context.
// Falls back to the principal if no actor is explicitly set.
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(contextKeyActorID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return GetPrincipal(ctx)
}

// WithSourceAddress adds the client source address to the context (for the
// access log).
func WithSourceAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, contextKeySourceAddr, addr)
}

// GetSourceAddress retrieves the source address from context.
func GetSourceAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeySourceAddr); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for the access log).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithSessionID adds the caller's session ID to the context. The session ID
// scopes password-verification markers for protected shares.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

// GetSessionID retrieves the session ID from context.
func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(contextKeySessionID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithResolution adds a Resolution to the context.
// This is set by middleware and can be retrieved in handlers.
func WithResolution(ctx context.Context, res *Resolution) context.Context {
	return context.WithValue(ctx, contextKeyResolution, res)
}

// GetResolution retrieves the Resolution from context.
// Returns nil if not set.
func GetResolution(ctx context.Context) *Resolution {
	if v := ctx.Value(contextKeyResolution); v != nil {
		if r, ok := v.(*Resolution); ok {
			return r
		}
	}
	return nil
}

// FromContext retrieves the Resolution from context.
// Alias for GetResolution for convenience.
func FromContext(ctx context.Context) *Resolution {
	return GetResolution(ctx)
}

// AuditContext holds all access-log related information from context.
type AuditContext struct {
	ActorID       string
	SourceAddress string
	UserAgent     string
	RequestID     string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:       GetActorID(ctx),
		SourceAddress: GetSourceAddress(ctx),
		UserAgent:     GetUserAgent(ctx),
		RequestID:     GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.SourceAddress != "" {
		ctx = WithSourceAddress(ctx, ac.SourceAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
