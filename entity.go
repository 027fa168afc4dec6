package sharekit

// Entity is the capability contract a domain type must satisfy to be
// shareable. The resolver and enforcement middleware depend only on this
// contract plus a registered lookup function, never on concrete entity logic.
type Entity interface {
	// CanonicalURL returns the canonical URL for viewing the entity.
	CanonicalURL() string

	// ShareURL returns the URL for viewing the entity when shared.
	// It may differ from the canonical URL, e.g. for public-facing routes.
	ShareURL() string

	// DisplayTitle returns a human-readable title for the entity.
	DisplayTitle() string

	// DisplayDescription returns a description of the entity. Types without
	// a meaningful description can return DefaultDescription(typeTag).
	DisplayDescription() string
}

// Owned is optionally implemented by entities that have an owner. Owners
// always resolve to ADMIN and bypass the enforcement level comparison.
type Owned interface {
	OwnerID() string
}

// DefaultDescription derives a description from an entity type tag, for
// types that do not carry one of their own.
func DefaultDescription(typeTag string) string {
	return "Shared " + typeTag
}

// ownerOf returns the entity's owner, if it exposes one. A nil entity has
// no owner, which keeps resolution fail-closed for unresolvable types.
func ownerOf(e Entity) (string, bool) {
	if e == nil {
		return "", false
	}
	owned, ok := e.(Owned)
	if !ok {
		return "", false
	}
	id := owned.OwnerID()
	if id == "" {
		return "", false
	}
	return id, true
}
