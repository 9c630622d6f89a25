package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/reconnect/internal/auth"
	"github.com/erazemk/reconnect/internal/db"
	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/store"
)

const testJWTSecret = "test-secret"

// testClock lets tests move service time forward. Tokens are still checked
// against the wall clock, so only advance it after logging in.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	clock  *testClock
	admin  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)

	bus := event.NewBus()
	bus.Subscribe("store", store.EventRecorder{DB: database})

	clock := &testClock{now: time.Now().UTC()}
	router := NewRouter(database, testJWTSecret, Options{
		Events:   bus,
		Location: time.UTC,
		Now:      clock.Now,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, db: database, clock: clock}
	env.admin = env.createUser(t, "admin", "Campus Admin", model.RoleAdmin)
	return env
}

// createUser adds a user with password "password" and returns their token.
func (e *testEnv) createUser(t *testing.T, username, displayName, role string) string {
	t.Helper()
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), e.db, username, displayName, hash, role); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return login(t, e.server, username, "password")
}

// setupTestServer starts a server and returns it with an admin token.
func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	env := newTestEnv(t)
	return env.server, env.admin
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends a request, checks the status and decodes the body into out.
func do(t *testing.T, method, url, token string, body any, want int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, want, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

type reportResult struct {
	Item       model.Item `json:"item"`
	Candidates []struct {
		Item  model.Item `json:"item"`
		Score int        `json:"score"`
	} `json:"candidates"`
}

func lostWallet() map[string]any {
	return map[string]any{
		"category":              "Wallet",
		"name":                  "Black leather wallet",
		"description":           "Black leather wallet with student card",
		"location":              "Main Library",
		"verification_question": "What colour is the zip?",
		"verification_answer":   "Blue",
		"contact_preference":    "email",
		"contact_info":          "ana@campus.edu",
	}
}

func foundWallet() map[string]any {
	return map[string]any{
		"category":         "Wallet",
		"name":             "Black leather wallet",
		"description":      "Black leather wallet with student card",
		"location":         "Main Library",
		"storage_location": "Security desk",
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing fields are rejected before any lookup.
	body, _ = json.Marshal(map[string]string{"username": "admin"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "ana", "Ana", model.RoleStudent)

	do(t, "GET", env.server.URL+"/api/claims/mine", token, nil, http.StatusOK, nil)
	do(t, "POST", env.server.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	do(t, "GET", env.server.URL+"/api/claims/mine", token, nil, http.StatusUnauthorized, nil)

	// A fresh login still works.
	token = login(t, env.server, "ana", "password")
	do(t, "GET", env.server.URL+"/api/claims/mine", token, nil, http.StatusOK, nil)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "ana", "Ana", model.RoleStudent)
	url := env.server.URL + "/api/auth/password"

	do(t, "PUT", url, token, map[string]string{
		"current_password": "wrong", "new_password": "new-password",
	}, http.StatusUnauthorized, nil)
	do(t, "PUT", url, token, map[string]string{
		"current_password": "password", "new_password": "short",
	}, http.StatusBadRequest, nil)
	do(t, "PUT", url, token, map[string]string{
		"current_password": "password", "new_password": "new-password",
	}, http.StatusOK, nil)

	login(t, env.server, "ana", "new-password")
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	// Browsing is public.
	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for public search, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ := json.Marshal(lostWallet())
	resp, _ = http.Post(server.URL+"/api/items/lost", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated report, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, "ana", "Ana", model.RoleStudent)

	for _, path := range []string{"/api/users", "/api/admin/dashboard", "/api/claims", "/api/audit", "/api/notifications"} {
		req, _ := authRequest("GET", env.server.URL+path, student, nil)
		resp, _ := http.DefaultClient.Do(req)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 for student on %s, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestUsersAPI(t *testing.T) {
	server, token := setupTestServer(t)

	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "ana", "display_name": "Ana", "password": "password", "role": "janitor",
	}, http.StatusBadRequest, nil)

	var user model.User
	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "ana", "display_name": "Ana", "password": "password", "role": model.RoleStudent,
	}, http.StatusCreated, &user)
	if user.DisplayName != "Ana" || user.Role != model.RoleStudent {
		t.Errorf("unexpected user: %+v", user)
	}

	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "ana", "password": "password", "role": model.RoleStudent,
	}, http.StatusConflict, nil)

	var users []model.User
	do(t, "GET", server.URL+"/api/users", token, nil, http.StatusOK, &users)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestReportValidation(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, "ana", "Ana", model.RoleStudent)
	url := env.server.URL + "/api/items/lost"

	req := lostWallet()
	delete(req, "name")
	var errResp map[string]string
	do(t, "POST", url, student, req, http.StatusBadRequest, &errResp)
	if errResp["error"] != "name is required" {
		t.Errorf("unexpected error: %q", errResp["error"])
	}

	req = lostWallet()
	req["category"] = "Spaceship"
	do(t, "POST", url, student, req, http.StatusBadRequest, nil)

	req = lostWallet()
	req["date"] = "yesterday"
	do(t, "POST", url, student, req, http.StatusBadRequest, nil)

	req = lostWallet()
	delete(req, "verification_answer")
	do(t, "POST", url, student, req, http.StatusBadRequest, nil)
}

func TestReportAndMatchFlow(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)
	bor := env.createUser(t, "bor", "Bor", model.RoleStudent)

	var lost reportResult
	do(t, "POST", env.server.URL+"/api/items/lost", ana, lostWallet(), http.StatusCreated, &lost)
	if lost.Item.Priority != model.PriorityHigh {
		t.Errorf("expected HIGH priority for a wallet, got %s", lost.Item.Priority)
	}
	if len(lost.Candidates) != 0 {
		t.Errorf("expected no candidates yet, got %d", len(lost.Candidates))
	}

	var found reportResult
	do(t, "POST", env.server.URL+"/api/items/found", bor, foundWallet(), http.StatusCreated, &found)
	if len(found.Candidates) != 1 || found.Candidates[0].Item.ID != lost.Item.ID {
		t.Fatalf("expected the lost wallet as the only candidate, got %+v", found.Candidates)
	}

	// Item detail is public and never reveals the answer.
	resp, err := http.Get(env.server.URL + "/api/items/" + lost.Item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if strings.Contains(strings.ToLower(string(data)), "blue") {
		t.Error("item detail leaks the verification answer")
	}

	var detail struct {
		model.Item
		Matches        []model.Item `json:"matches"`
		NextEscalation string       `json:"next_escalation"`
	}
	json.Unmarshal(data, &detail)
	if len(detail.Matches) != 1 || detail.Matches[0].ID != found.Item.ID {
		t.Errorf("expected the found wallet as match, got %+v", detail.Matches)
	}
	if detail.NextEscalation != "1d to 24h" {
		t.Errorf("unexpected next escalation %q", detail.NextEscalation)
	}

	var items []model.Item
	do(t, "GET", env.server.URL+"/api/items?type=found&q=leather", "", nil, http.StatusOK, &items)
	if len(items) != 1 || items[0].ID != found.Item.ID {
		t.Errorf("expected search to return the found wallet, got %d items", len(items))
	}

	do(t, "GET", env.server.URL+"/api/items?type=misplaced", "", nil, http.StatusBadRequest, nil)
	do(t, "GET", env.server.URL+"/api/items/RC-missing", "", nil, http.StatusNotFound, nil)

	var notes []model.Notification
	do(t, "GET", env.server.URL+"/api/notifications", env.admin, nil, http.StatusOK, &notes)
	var sawMatch, sawUrgent bool
	for _, n := range notes {
		sawMatch = sawMatch || n.Type == model.TagMatch
		sawUrgent = sawUrgent || n.Type == model.TagUrgent
	}
	if !sawMatch || !sawUrgent {
		t.Errorf("expected match and urgent notifications, got %+v", notes)
	}
}

func TestClaimFlow(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)
	bor := env.createUser(t, "bor", "Bor", model.RoleStudent)

	var lost reportResult
	do(t, "POST", env.server.URL+"/api/items/lost", ana, lostWallet(), http.StatusCreated, &lost)
	url := env.server.URL + "/api/claims"

	var wrong wrongAnswerResponse
	do(t, "POST", url, bor, map[string]string{
		"item_id": lost.Item.ID, "answer": "red", "identifier": "card 1234",
	}, http.StatusUnprocessableEntity, &wrong)
	if wrong.AttemptsLeft != 2 {
		t.Errorf("expected 2 attempts left, got %d", wrong.AttemptsLeft)
	}

	do(t, "POST", url, bor, map[string]string{
		"item_id": lost.Item.ID, "answer": " BLUE ",
	}, http.StatusBadRequest, nil)

	var c model.Claim
	do(t, "POST", url, bor, map[string]string{
		"item_id": lost.Item.ID, "answer": " BLUE ", "identifier": "card 1234",
	}, http.StatusCreated, &c)
	if c.Status != model.ClaimStatusPendingAdmin {
		t.Errorf("expected %q, got %q", model.ClaimStatusPendingAdmin, c.Status)
	}
	if len(c.AuditLog) != 3 {
		t.Errorf("expected 3 audit entries, got %d", len(c.AuditLog))
	}

	do(t, "POST", url, bor, map[string]string{
		"item_id": lost.Item.ID, "answer": "blue", "identifier": "card 1234",
	}, http.StatusConflict, nil)

	var mine []model.Claim
	do(t, "GET", url+"/mine", bor, nil, http.StatusOK, &mine)
	if len(mine) != 1 {
		t.Errorf("expected 1 claim, got %d", len(mine))
	}
	do(t, "GET", url+"/mine", ana, nil, http.StatusOK, &mine)
	if len(mine) != 0 {
		t.Errorf("expected no claims for reporter, got %d", len(mine))
	}

	var pending []model.Claim
	do(t, "GET", url+"?pending=true", env.admin, nil, http.StatusOK, &pending)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending claim, got %d", len(pending))
	}

	var approved model.Claim
	do(t, "POST", url+"/"+c.ID+"/approve", env.admin, nil, http.StatusOK, &approved)
	if approved.Status != model.ClaimStatusApproved {
		t.Errorf("expected Approved, got %q", approved.Status)
	}
	do(t, "POST", url+"/"+c.ID+"/reject", env.admin, nil, http.StatusConflict, nil)
	do(t, "POST", url+"/CLM-missing/approve", env.admin, nil, http.StatusNotFound, nil)

	var item model.Item
	do(t, "GET", env.server.URL+"/api/items/"+lost.Item.ID, "", nil, http.StatusOK, &item)
	if item.Status != model.ItemStatusReturned {
		t.Errorf("expected Returned, got %q", item.Status)
	}

	// Returned items can no longer be claimed.
	do(t, "POST", url, ana, map[string]string{
		"item_id": lost.Item.ID, "answer": "blue", "identifier": "x",
	}, http.StatusConflict, nil)

	// Found reports carry no owner question and are never claimable.
	var found reportResult
	do(t, "POST", env.server.URL+"/api/items/found", ana, foundWallet(), http.StatusCreated, &found)
	do(t, "POST", url, bor, map[string]string{
		"item_id": found.Item.ID, "answer": "blue", "identifier": "x",
	}, http.StatusConflict, nil)

	var audit []model.AuditEntry
	do(t, "GET", env.server.URL+"/api/audit?limit=2", env.admin, nil, http.StatusOK, &audit)
	if len(audit) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(audit))
	}
	if audit[0].Action != "Claim Approved" {
		t.Errorf("expected newest audit entry to be the approval, got %q", audit[0].Action)
	}
}

func TestClaimLockout(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)
	bor := env.createUser(t, "bor", "Bor", model.RoleStudent)

	var lost reportResult
	do(t, "POST", env.server.URL+"/api/items/lost", ana, lostWallet(), http.StatusCreated, &lost)
	url := env.server.URL + "/api/claims"
	guess := map[string]string{"item_id": lost.Item.ID, "answer": "green", "identifier": "x"}

	do(t, "POST", url, bor, guess, http.StatusUnprocessableEntity, nil)
	do(t, "POST", url, bor, guess, http.StatusUnprocessableEntity, nil)

	var last wrongAnswerResponse
	do(t, "POST", url, bor, guess, http.StatusForbidden, &last)
	if last.AttemptsLeft != 0 {
		t.Errorf("expected 0 attempts left, got %d", last.AttemptsLeft)
	}

	// The right answer doesn't help while flagged.
	right := map[string]string{"item_id": lost.Item.ID, "answer": "blue", "identifier": "x"}
	do(t, "POST", url, bor, right, http.StatusForbidden, nil)

	var flagged []model.FlaggedUser
	do(t, "GET", env.server.URL+"/api/admin/flagged", env.admin, nil, http.StatusOK, &flagged)
	if len(flagged) != 1 || flagged[0].Username != "bor" {
		t.Fatalf("expected bor to be flagged, got %+v", flagged)
	}

	do(t, "DELETE", env.server.URL+"/api/admin/flagged/9999", env.admin, nil, http.StatusNotFound, nil)
	do(t, "DELETE", env.server.URL+"/api/admin/flagged/"+jsonInt(flagged[0].UserID), env.admin, nil, http.StatusOK, nil)
	do(t, "POST", url, bor, right, http.StatusCreated, nil)
}

func jsonInt(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func TestEscalationFlow(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)
	bor := env.createUser(t, "bor", "Bor", model.RoleStudent)

	var lost reportResult
	do(t, "POST", env.server.URL+"/api/items/lost", ana, lostWallet(), http.StatusCreated, &lost)
	do(t, "POST", env.server.URL+"/api/items/found", bor, foundWallet(), http.StatusCreated, nil)

	var run map[string]int
	do(t, "POST", env.server.URL+"/api/admin/escalations/run", env.admin, nil, http.StatusOK, &run)
	if run["fired"] != 0 {
		t.Errorf("expected nothing to fire on a new report, got %d", run["fired"])
	}

	env.clock.Advance(25 * time.Hour)
	do(t, "POST", env.server.URL+"/api/admin/escalations/run", env.admin, nil, http.StatusOK, &run)
	if run["fired"] != 1 {
		t.Errorf("expected one escalation, got %d", run["fired"])
	}

	var detail struct {
		Escalation     string `json:"escalation"`
		NextEscalation string `json:"next_escalation"`
	}
	do(t, "GET", env.server.URL+"/api/items/"+lost.Item.ID, "", nil, http.StatusOK, &detail)
	if detail.Escalation != "24h" {
		t.Errorf("expected level 24h, got %q", detail.Escalation)
	}
	if detail.NextEscalation != "2d to 72h" {
		t.Errorf("unexpected next escalation %q", detail.NextEscalation)
	}

	// Viewing the dashboard after a week marks the item unclaimed.
	env.clock.Advance(7 * 24 * time.Hour)
	var dash dashboardResponse
	do(t, "GET", env.server.URL+"/api/admin/dashboard", env.admin, nil, http.StatusOK, &dash)
	if dash.EscalationsFired != 1 {
		t.Errorf("expected one escalation from the dashboard, got %d", dash.EscalationsFired)
	}

	var item model.Item
	do(t, "GET", env.server.URL+"/api/items/"+lost.Item.ID, "", nil, http.StatusOK, &item)
	if item.Status != model.ItemStatusUnclaimed {
		t.Errorf("expected Unclaimed, got %q", item.Status)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)

	do(t, "POST", env.server.URL+"/api/items/lost", ana, lostWallet(), http.StatusCreated, nil)
	do(t, "POST", env.server.URL+"/api/items/found", ana, foundWallet(), http.StatusCreated, nil)

	var dash dashboardResponse
	do(t, "GET", env.server.URL+"/api/admin/dashboard", env.admin, nil, http.StatusOK, &dash)
	if dash.Stats.Total != 2 || dash.Stats.Today != 2 || dash.Stats.Matches != 1 {
		t.Errorf("unexpected stats: %+v", dash.Stats)
	}
	if dash.UnreadNotifications == 0 {
		t.Error("expected unread notifications")
	}
	if len(dash.Analytics.LostLocations) != 1 || dash.Analytics.LostLocations[0].Label != "Main Library" {
		t.Errorf("unexpected lost locations: %+v", dash.Analytics.LostLocations)
	}

	do(t, "POST", env.server.URL+"/api/notifications/read-all", env.admin, nil, http.StatusOK, nil)
	do(t, "GET", env.server.URL+"/api/admin/dashboard", env.admin, nil, http.StatusOK, &dash)
	if dash.UnreadNotifications != 0 {
		t.Errorf("expected no unread notifications, got %d", dash.UnreadNotifications)
	}
	do(t, "POST", env.server.URL+"/api/notifications/N-missing/read", env.admin, nil, http.StatusNotFound, nil)
}

func TestMarkReturned(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)

	var found reportResult
	do(t, "POST", env.server.URL+"/api/items/found", ana, foundWallet(), http.StatusCreated, &found)

	do(t, "POST", env.server.URL+"/api/items/"+found.Item.ID+"/return", ana, nil, http.StatusForbidden, nil)

	var item model.Item
	do(t, "POST", env.server.URL+"/api/items/"+found.Item.ID+"/return", env.admin, nil, http.StatusOK, &item)
	if item.Status != model.ItemStatusReturned || item.ReturnedAt == nil {
		t.Errorf("expected a returned item, got %+v", item)
	}
	do(t, "POST", env.server.URL+"/api/items/RC-missing/return", env.admin, nil, http.StatusNotFound, nil)
}

func photoRequest(t *testing.T, url, token string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "photo.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req, _ := http.NewRequest("PUT", url, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPhotoUpload(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "Ana", model.RoleStudent)
	bor := env.createUser(t, "bor", "Bor", model.RoleStudent)

	var found reportResult
	do(t, "POST", env.server.URL+"/api/items/found", ana, foundWallet(), http.StatusCreated, &found)
	url := env.server.URL + "/api/items/" + found.Item.ID + "/photo"

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := range 64 {
		for y := range 48 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var pngData bytes.Buffer
	png.Encode(&pngData, img)

	resp, _ := http.DefaultClient.Do(photoRequest(t, url, bor, pngData.Bytes()))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for another student's item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.DefaultClient.Do(photoRequest(t, url, ana, []byte("not an image")))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for text, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.DefaultClient.Do(photoRequest(t, url, ana, pngData.Bytes()))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
}
