package sharekit

import (
	"time"

	"github.com/uptrace/bun"
)

// publicGrantee is the stored grantee value for public grants. Using a
// sentinel instead of NULL lets the (entity_type, entity_id, grantee) unique
// index constrain public grants too, so concurrent create attempts upsert
// instead of duplicating.
const publicGrantee = ""

// DefaultShareDuration is the retention window applied when a grant is
// created without an explicit expiry. Grants are never permanent by default.
const DefaultShareDuration = 30 * 24 * time.Hour

// EntityRef is a polymorphic reference to a shareable entity.
type EntityRef struct {
	Type string // e.g., "document", "event"
	ID   string // opaque entity identifier
}

// NewEntityRef creates a new EntityRef.
func NewEntityRef(entityType, entityID string) EntityRef {
	return EntityRef{Type: entityType, ID: entityID}
}

// String returns a string representation of the reference.
func (r EntityRef) String() string {
	return r.Type + ":" + r.ID
}

// IsZero reports whether the reference is empty.
func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// ShareGrant is a durable sharing grant on one entity. Exactly one of
// {a specific grantee, the public} is the target: IsPublic true implies an
// empty Grantee.
type ShareGrant struct {
	bun.BaseModel `bun:"table:share_grants,alias:sg"`

	// ID is a 128-bit random identifier, generated in the application.
	// It doubles as the unguessable share link and is never sequential.
	ID         string `bun:"id,pk,type:uuid" json:"id"`
	EntityType string `bun:"entity_type,notnull" json:"entity_type"`
	EntityID   string `bun:"entity_id,notnull" json:"entity_id"`
	CreatedBy  string `bun:"created_by,notnull" json:"created_by"`

	Grantee  string `bun:"grantee,notnull,default:''" json:"grantee,omitempty"`
	IsPublic bool   `bun:"is_public,notnull,default:false" json:"is_public"`
	Level    Level  `bun:"level,notnull" json:"level"`

	// PasswordHash holds a bcrypt hash; the plaintext is never stored and
	// the hash is never serialized.
	PasswordHash string    `bun:"password_hash" json:"-"`
	ExpiresAt    time.Time `bun:"expires_at,notnull" json:"expires_at"`

	AccessCount    int64      `bun:"access_count,notnull,default:0" json:"access_count"`
	LastAccessedAt *time.Time `bun:"last_accessed_at" json:"last_accessed_at,omitempty"`

	// Optional metadata shown alongside the shared entity.
	Name        string `bun:"name" json:"name,omitempty"`
	Description string `bun:"description" json:"description,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// EntityRef returns the grant's target entity reference.
func (g *ShareGrant) EntityRef() EntityRef {
	return EntityRef{Type: g.EntityType, ID: g.EntityID}
}

// IsExpired reports whether the grant has lapsed at the given instant.
// Expiry is enforced lazily at read time; no background sweep is required
// for correctness.
func (g *ShareGrant) IsExpired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// HasPassword reports whether the grant is password protected.
func (g *ShareGrant) HasPassword() bool {
	return g.PasswordHash != ""
}

// AccessibleBy reports whether a principal may consume this grant through
// the share-access route. Public grants are accessible by anyone, including
// anonymous callers.
func (g *ShareGrant) AccessibleBy(principal string, now time.Time) bool {
	if g.IsExpired(now) {
		return false
	}
	if g.IsPublic {
		return true
	}
	if principal == "" {
		return false
	}
	return principal == g.CreatedBy || principal == g.Grantee
}

// String returns a human-readable representation of the grant.
func (g *ShareGrant) String() string {
	if g.IsPublic {
		return "public share: " + g.EntityRef().String() + " (" + g.Level.String() + ")"
	}
	return "share with " + g.Grantee + ": " + g.EntityRef().String() + " (" + g.Level.String() + ")"
}

// AccessLogEntry records one consumption of a share. Entries are append-only:
// they are created exactly once per successful access and never updated.
type AccessLogEntry struct {
	bun.BaseModel `bun:"table:share_access_log,alias:sal"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	ShareID string `bun:"share_id,notnull" json:"share_id"`

	// Principal is empty for anonymous access.
	Principal     string `bun:"principal" json:"principal,omitempty"`
	SourceAddress string `bun:"source_address" json:"source_address,omitempty"`
	UserAgent     string `bun:"user_agent" json:"user_agent,omitempty"`

	PasswordRequired bool      `bun:"password_required,notnull,default:false" json:"password_required"`
	AccessedAt       time.Time `bun:"accessed_at,notnull,default:current_timestamp" json:"accessed_at"`
}

// ShareSet holds the live grants for one entity, indexed for resolution.
type ShareSet struct {
	Ref    EntityRef
	Grants []ShareGrant

	byGrantee map[string]*ShareGrant
	public    *ShareGrant
}

// NewShareSet builds a ShareSet from a list of grants. Grants already
// expired at build time are dropped, so an expired grant is indistinguishable
// from a missing one. When several public grants exist the highest level wins.
func NewShareSet(ref EntityRef, grants []ShareGrant) *ShareSet {
	now := time.Now()
	set := &ShareSet{
		Ref:       ref,
		byGrantee: make(map[string]*ShareGrant),
	}

	for _, g := range grants {
		if g.IsExpired(now) {
			continue
		}
		if g.EntityType != ref.Type || g.EntityID != ref.ID {
			continue
		}
		set.Grants = append(set.Grants, g)
	}

	for i := range set.Grants {
		g := &set.Grants[i]
		if g.IsPublic {
			if set.public == nil || g.Level.Ordinal() > set.public.Level.Ordinal() {
				set.public = g
			}
			continue
		}
		if g.Grantee != "" {
			set.byGrantee[g.Grantee] = g
		}
	}

	return set
}

// PublicLevel returns the level of the public grant, or LevelNone.
func (s *ShareSet) PublicLevel() Level {
	if s.public == nil {
		return LevelNone
	}
	return s.public.Level
}

// PublicGrant returns the public grant, or nil.
func (s *ShareSet) PublicGrant() *ShareGrant {
	return s.public
}

// GranteeLevel returns the level granted directly to a principal, or
// LevelNone.
func (s *ShareSet) GranteeLevel(principal string) Level {
	if g, ok := s.byGrantee[principal]; ok {
		return g.Level
	}
	return LevelNone
}

// GranteeGrant returns the grant targeting a principal, or nil.
func (s *ShareSet) GranteeGrant(principal string) *ShareGrant {
	return s.byGrantee[principal]
}

// IsEmpty reports whether no live grants exist for the entity.
func (s *ShareSet) IsEmpty() bool {
	return len(s.Grants) == 0
}
