package sharekit

// Resolution is the outcome of resolving a principal's effective permission
// on one entity. It is typically created by the Service or the enforcement
// middleware and stored in context for use in handlers.
type Resolution struct {
	principal string
	ref       EntityRef
	level     Level
	isOwner   bool
	shares    *ShareSet
}

// Resolve computes a principal's effective permission on an entity from its
// live grants. It is a pure function of its inputs and never fails: "no
// permission" is the normal LevelNone result.
//
// Precedence, short-circuiting on the first match:
//
//  1. A nil entity (deleted, unregistered, or a non-conforming type)
//     resolves to NONE no matter what grants exist.
//  2. A public grant sets the floor for any principal, including anonymous.
//  3. Anonymous without a public grant resolves to NONE.
//  4. The entity's owner resolves to ADMIN, overriding any lesser grant:
//     an owner can never be locked out by their own sharing mistakes.
//  5. A targeted grant contributes its level; when both a public and a
//     targeted grant exist, the higher of the two wins.
//  6. Otherwise NONE.
//
// Expired grants were already dropped when the ShareSet was built, so they
// behave exactly like missing grants.
func Resolve(entity Entity, ref EntityRef, principal string, shares *ShareSet) *Resolution {
	res := &Resolution{
		principal: principal,
		ref:       ref,
		level:     LevelNone,
		shares:    shares,
	}
	if shares == nil {
		shares = NewShareSet(ref, nil)
		res.shares = shares
	}

	// Grants may outlive the object they point at. An entity that cannot
	// be resolved confers nothing.
	if entity == nil {
		return res
	}

	publicLevel := shares.PublicLevel()

	if principal == "" {
		res.level = publicLevel
		return res
	}

	if owner, ok := ownerOf(entity); ok && owner == principal {
		res.level = LevelAdmin
		res.isOwner = true
		return res
	}

	res.level = MaxLevel(publicLevel, shares.GranteeLevel(principal))
	return res
}

// Principal returns the principal this resolution is for.
// Empty means anonymous.
func (r *Resolution) Principal() string {
	return r.principal
}

// Ref returns the entity reference that was resolved.
func (r *Resolution) Ref() EntityRef {
	return r.ref
}

// Level returns the effective permission level. LevelNone means no access.
func (r *Resolution) Level() Level {
	return r.level
}

// IsOwner reports whether the principal owns the entity. Owners bypass the
// enforcement level comparison entirely.
func (r *Resolution) IsOwner() bool {
	return r.isOwner
}

// Sufficient reports whether the effective level satisfies a required level.
func (r *Resolution) Sufficient(required Level) bool {
	if r.isOwner {
		return true
	}
	return r.level.Sufficient(required)
}

// Grant returns the grant that produced the effective level: the targeted
// grant when it is at least as high as the public one, otherwise the public
// grant. Returns nil for owners without a grant and for NONE results.
func (r *Resolution) Grant() *ShareGrant {
	if r.shares == nil {
		return nil
	}
	targeted := r.shares.GranteeGrant(r.principal)
	public := r.shares.PublicGrant()
	if targeted != nil && (public == nil || targeted.Level.Ordinal() >= public.Level.Ordinal()) {
		return targeted
	}
	return public
}
