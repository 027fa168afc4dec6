package sharekit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func gateRequest(t *testing.T, gate *AccessGate, method, shareID string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if method == http.MethodPost {
		req = httptest.NewRequest(method, "/shares/access/"+shareID, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, "/shares/access/"+shareID, nil)
	}
	req.SetPathValue("shareID", shareID)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	gate.ServeHTTP(w, req)
	return w
}

// TestAccessRouteGranted tests the full share-access flow for an open
// public share
func TestAccessRouteGranted(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	owner := h.CreateTestUser("owner")
	ref := h.CreateTestDocument(owner)
	grant, err := h.SharePublic(owner, ref, LevelView)
	if err != nil {
		t.Fatalf("Failed to share publicly: %v", err)
	}

	gate := NewAccessGate(h.service)
	w := gateRequest(t, gate, http.MethodGet, grant.ID, nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["state"] != "granted" {
		t.Errorf("Expected granted state, got %v", resp["state"])
	}
	if resp["level"] != "VIEW" {
		t.Errorf("Expected VIEW level, got %v", resp["level"])
	}

	// A session cookie was set
	if len(w.Result().Cookies()) == 0 {
		t.Error("Expected a session cookie")
	}

	// Exactly one access log entry was appended
	entries, err := h.service.GetAccessLog(h.ctx, NewAccessLogFilter().WithShare(grant.ID))
	if err != nil {
		t.Fatalf("Failed to read access log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 access log entry, got %d", len(entries))
	}
	if entries[0].PasswordRequired {
		t.Error("Open share access should not be flagged password_required")
	}

	// The grant counters were bumped
	reloaded, err := h.service.GetShare(h.ctx, grant.ID)
	if err != nil {
		t.Fatalf("Failed to reload grant: %v", err)
	}
	if reloaded.AccessCount != 1 {
		t.Errorf("Expected access_count 1, got %d", reloaded.AccessCount)
	}
	if reloaded.LastAccessedAt == nil {
		t.Error("Expected last_accessed_at to be set")
	}
}

// TestConcurrentAccessLogging tests that simultaneous accesses each append
// exactly one log entry and the counter accounts for all of them
func TestConcurrentAccessLogging(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	owner := h.CreateTestUser("owner")
	ref := h.CreateTestDocument(owner)
	grant, err := h.SharePublic(owner, ref, LevelView)
	if err != nil {
		t.Fatalf("Failed to share publicly: %v", err)
	}

	gate := NewAccessGate(h.service)

	const accesses = 5
	var wg sync.WaitGroup
	codes := make(chan int, accesses)
	for i := 0; i < accesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := gateRequest(t, gate, http.MethodGet, grant.ID, nil, nil)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("Concurrent access should succeed, got %d", code)
		}
	}

	count, err := h.service.CountAccesses(h.ctx, grant.ID)
	if err != nil {
		t.Fatalf("Failed to count accesses: %v", err)
	}
	if count != accesses {
		t.Errorf("Expected %d access log entries, got %d", accesses, count)
	}

	// The SQL-side increment never loses an update
	reloaded, err := h.service.GetShare(h.ctx, grant.ID)
	if err != nil {
		t.Fatalf("Failed to reload grant: %v", err)
	}
	if reloaded.AccessCount != accesses {
		t.Errorf("Expected access_count %d, got %d", accesses, reloaded.AccessCount)
	}
}

// TestAccessRouteUnknownShare tests that an unknown ID reads as not found
func TestAccessRouteUnknownShare(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	gate := NewAccessGate(h.service)
	w := gateRequest(t, gate, http.MethodGet, "00000000-0000-0000-0000-000000000000", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown share, got %d", w.Code)
	}
}

// TestAccessRouteExpired tests that an expired link is gone and leaves no
// log entry
func TestAccessRouteExpired(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	owner := h.CreateTestUser("owner")
	ref := h.CreateTestDocument(owner)

	ctx := WithActorID(h.ctx, owner)
	grant, err := h.service.CreateShare(ctx, CreateShareInput{
		EntityType: ref.Type, EntityID: ref.ID, Public: true, Level: LevelView,
		ExpiresAt: time.Now().Add(50 * time.Millisecond),
	})
	if err != nil {
		t.Fatalf("Failed to create share: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	gate := NewAccessGate(h.service)
	w := gateRequest(t, gate, http.MethodGet, grant.ID, nil, nil)

	if w.Code != http.StatusGone {
		t.Errorf("Expected 410 for expired share, got %d", w.Code)
	}
	// The generic message reveals nothing about the entity
	if strings.Contains(w.Body.String(), ref.ID) {
		t.Error("Expired response must not leak the entity ID")
	}

	entries, err := h.service.GetAccessLog(h.ctx, NewAccessLogFilter().WithShare(grant.ID))
	if err != nil {
		t.Fatalf("Failed to read access log: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expired access must not be logged, got %d entries", len(entries))
	}
}

// TestAccessRoutePasswordFlow tests prompt, wrong attempt, correct attempt,
// and the per-session verification
func TestAccessRoutePasswordFlow(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	owner := h.CreateTestUser("owner")
	ref := h.CreateTestDocument(owner)

	ctx := WithActorID(h.ctx, owner)
	grant, err := h.service.CreateShare(ctx, CreateShareInput{
		EntityType: ref.Type, EntityID: ref.ID, Public: true, Level: LevelView,
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("Failed to create share: %v", err)
	}

	gate := NewAccessGate(h.service)

	// First visit prompts
	w := gateRequest(t, gate, http.MethodGet, grant.ID, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 prompt, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie with the prompt")
	}

	// No log entry yet
	entries, _ := h.service.GetAccessLog(h.ctx, NewAccessLogFilter().WithShare(grant.ID))
	if len(entries) != 0 {
		t.Errorf("Prompt must not be logged, got %d entries", len(entries))
	}

	// Wrong password re-prompts
	w = gateRequest(t, gate, http.MethodPost, grant.ID, url.Values{"password": {"wrong"}}, cookies)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 on wrong password, got %d", w.Code)
	}

	// Correct password grants and logs with the password flag
	w = gateRequest(t, gate, http.MethodPost, grant.ID, url.Values{"password": {"hunter2"}}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on correct password, got %d: %s", w.Code, w.Body.String())
	}

	entries, err = h.service.GetAccessLog(h.ctx, NewAccessLogFilter().WithShare(grant.ID))
	if err != nil {
		t.Fatalf("Failed to read access log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 access log entry, got %d", len(entries))
	}
	if !entries[0].PasswordRequired {
		t.Error("Password-gated access should be flagged password_required")
	}

	// The same session is not prompted again
	w = gateRequest(t, gate, http.MethodGet, grant.ID, nil, cookies)
	if w.Code != http.StatusOK {
		t.Errorf("Verified session should pass without prompt, got %d", w.Code)
	}

	// A fresh session is prompted
	w = gateRequest(t, gate, http.MethodGet, grant.ID, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Fresh session should be prompted, got %d", w.Code)
	}
}

// TestAccessRouteStoreSessionVerifier tests the database-backed verifier
func TestAccessRouteStoreSessionVerifier(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	verifier := NewStoreSessionVerifier(h.service.db)
	shareID := uuid.NewString()

	if verifier.IsVerified(h.ctx, "sess-1", shareID) {
		t.Error("Unknown verification should read as unverified")
	}
	if err := verifier.MarkVerified(h.ctx, "sess-1", shareID); err != nil {
		t.Fatalf("Failed to mark verified: %v", err)
	}
	if !verifier.IsVerified(h.ctx, "sess-1", shareID) {
		t.Error("Verification should persist")
	}

	// Re-verifying refreshes rather than conflicting
	if err := verifier.MarkVerified(h.ctx, "sess-1", shareID); err != nil {
		t.Fatalf("Re-verification failed: %v", err)
	}

	if err := verifier.Forget(h.ctx, "sess-1", shareID); err != nil {
		t.Fatalf("Failed to forget: %v", err)
	}
	if verifier.IsVerified(h.ctx, "sess-1", shareID) {
		t.Error("Forgotten verification should read as unverified")
	}
}

// TestMiddlewareEnforcement tests the RequireLevel middleware against a
// real database
func TestMiddlewareEnforcement(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	owner := h.CreateTestUser("owner")
	viewer := h.CreateTestUser("viewer")
	outsider := h.CreateTestUser("outsider")
	ref := h.CreateTestDocument(owner)

	if _, err := h.ShareWith(owner, ref, viewer, LevelView); err != nil {
		t.Fatalf("Failed to share: %v", err)
	}

	mw := NewMiddleware(h.service)
	protected := mw.RequireLevel(LevelEdit, EntityFromParam("document", "docID"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := FromContext(r.Context())
			if res == nil {
				t.Error("Resolution should be in context")
			}
			w.WriteHeader(http.StatusOK)
		}))

	serve := func(principal string) int {
		req := httptest.NewRequest(http.MethodGet, "/documents/"+ref.ID, nil)
		req.SetPathValue("docID", ref.ID)
		if principal != "" {
			req = req.WithContext(WithPrincipal(req.Context(), principal))
		}
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		return w.Code
	}

	// Owner bypasses the level comparison
	if code := serve(owner); code != http.StatusOK {
		t.Errorf("Owner should pass, got %d", code)
	}

	// A VIEW grantee on an EDIT route is visible but insufficient
	if code := serve(viewer); code != http.StatusForbidden {
		t.Errorf("VIEW grantee should get 403 on EDIT route, got %d", code)
	}

	// No permission at all reads as nonexistence
	if code := serve(outsider); code != http.StatusNotFound {
		t.Errorf("Outsider should get 404, got %d", code)
	}
	if code := serve(""); code != http.StatusNotFound {
		t.Errorf("Anonymous should get 404, got %d", code)
	}
}

// TestHandlerRoutes tests the management HTTP surface end to end
func TestHandlerRoutes(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	owner := h.CreateTestUser("owner")
	grantee := h.CreateTestUser("grantee")
	ref := h.CreateTestDocument(owner)

	principal := owner
	handler := NewHandler(h.service, NewAccessGate(h.service),
		WithHandlerPrincipalExtractor(func(r *http.Request) string { return principal }))
	routes := handler.Routes()

	// Create a grant over HTTP
	body := `{"entity_type":"` + ref.Type + `","entity_id":"` + ref.ID + `","grantee":"` + grantee + `","level":"EDIT","duration_days":7}`
	req := httptest.NewRequest(http.MethodPost, "/shares", strings.NewReader(body))
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created ShareGrant
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode created grant: %v", err)
	}
	if created.Level != LevelEdit {
		t.Errorf("Expected EDIT grant, got %s", created.Level)
	}

	// List created grants
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shares/created", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 listing created shares, got %d", w.Code)
	}

	// The grantee sees it under received
	principal = grantee
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shares/received", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 listing received shares, got %d", w.Code)
	}
	var received []ShareGrant
	if err := json.Unmarshal(w.Body.Bytes(), &received); err != nil {
		t.Fatalf("Failed to decode received shares: %v", err)
	}
	if len(received) != 1 {
		t.Errorf("Expected 1 received share, got %d", len(received))
	}

	// The grantee cannot manage the grant
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/shares/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Grantee delete should read as 404, got %d", w.Code)
	}

	// The creator can
	principal = owner
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/shares/"+created.ID, nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Creator delete should return 204, got %d", w.Code)
	}
}
