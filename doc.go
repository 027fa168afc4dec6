// Package sharekit provides an entity-agnostic sharing and permission-resolution layer.
//
// ShareKit lets any domain object (a document, an event, a story, etc.) be
// exposed to other principals, a single named user or the public, at one of
// four ordered permission levels, optionally behind a password and/or an
// expiration date, with per-access logging.
//
// # Core Concepts
//
// EntityRef: A tuple of (Type, ID) referencing the shared object.
// Examples: ("document", "doc_123"), ("event", "evt_456")
//
// ShareGrant: A durable record granting a permission level on one entity to
// either a specific grantee or the public. A grant may carry a password
// (stored as a bcrypt hash) and always carries an expiration date; grants
// created without one default to 30 days.
//
// Level: One of the totally ordered levels VIEW < COMMENT < EDIT < ADMIN.
// Resolution returns NONE when no access exists; NONE is a normal value,
// never an error.
//
// # Key Features
//
//   - Entity-agnostic: works with any entity type registered at startup
//   - Fixed four-level permission order with ordinal comparison
//   - Public and targeted grants combine to the higher of the two levels
//   - Owners always resolve to ADMIN and can never lock themselves out
//   - Lazy expiry: an expired grant behaves exactly like a missing one
//   - Password-gated access with per-share session verification and
//     rate-limited attempts
//   - Append-only access log: who, when, source address, password used
//   - Unguessable share links: 128-bit random identifiers
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Register your entity types (at application startup)
//	registry := sharekit.NewRegistry()
//
//	registry.DefineEntity("document").
//	    Lookup(func(ctx context.Context, id string) (sharekit.Entity, error) {
//	        return documents.Get(ctx, id)
//	    })
//
//	// 2. Create the service
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := sharekit.NewService(registry, db)
//
//	// 3. Run migrations
//	db.Migrate(ctx, sharekit.NewMigrationService(service).Migrations())
//
//	// 4. Create grants
//	grant, _ := service.CreateShare(ctx, sharekit.CreateShareInput{
//	    EntityType: "document",
//	    EntityID:   docID,
//	    Grantee:    "user_42",
//	    Level:      sharekit.LevelEdit,
//	})
//
//	// 5. Resolve permissions
//	res, _ := service.Resolve(ctx, sharekit.NewEntityRef("document", docID), "user_42")
//	if res.Sufficient(sharekit.LevelEdit) {
//	    // user_42 can edit this document
//	}
//
// # Middleware Usage
//
//	mw := sharekit.NewMiddleware(service)
//
//	mux.Handle("GET /documents/{documentID}",
//	    mw.RequireLevel(sharekit.LevelView,
//	        sharekit.EntityFromParam("document", "documentID"))(viewHandler))
//
//	mux.Handle("PUT /documents/{documentID}",
//	    mw.RequireLevel(sharekit.LevelEdit,
//	        sharekit.EntityFromParam("document", "documentID"))(editHandler))
//
// Enforcement deliberately distinguishes two failure signals: a principal
// with no visibility at all receives 404 (the object's existence is hidden),
// while a principal with some access but an insufficient level receives 403.
//
// # Share Access Route
//
// AccessGate serves the unguessable share link itself:
//
//	gate := sharekit.NewAccessGate(service)
//	mux.Handle("GET /shares/access/{shareID}", gate)
//	mux.Handle("POST /shares/access/{shareID}", gate)
//
// A GET renders the shared entity, or a password prompt for protected
// shares. A POST submits the password; a correct entry marks the session as
// verified for that specific share only. Every successful access appends
// exactly one AccessLogEntry and bumps the grant's access counter.
//
// # Resolution Order
//
// Resolve evaluates in fixed precedence:
//
//  1. An entity that cannot be resolved (deleted, or an unregistered type)
//     yields NONE regardless of grants.
//  2. A non-expired public grant sets the floor for any principal,
//     including anonymous callers.
//  3. Anonymous callers without a public grant resolve to NONE.
//  4. The entity's owner resolves to ADMIN, overriding any lesser grant.
//  5. A non-expired targeted grant contributes its level; the result is the
//     higher of the public and targeted levels.
//  6. Otherwise NONE.
package sharekit
