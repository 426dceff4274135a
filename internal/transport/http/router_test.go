package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fyndora/internal/audit"
	"fyndora/internal/audit/async"
	"fyndora/internal/audit/query"
	"fyndora/internal/audit/store/memory"
	"fyndora/internal/domain"
	"fyndora/internal/platform/lockout"
	"fyndora/internal/platform/secrets"
	"fyndora/internal/platform/token"
)

type testServer struct {
	router http.Handler
	store  *memory.Store
	tokens *token.Service
	userID uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := audit.DefaultConfig()

	store := memory.NewStore()
	registry := audit.NewRegistry(cfg, logger)
	domain.RegisterDefaults(registry)
	recorder := audit.NewRecorder(store, registry, logger, nil)
	events := audit.NewAuthEvents(recorder, cfg, logger, nil)

	hash, err := secrets.Hash("s3cret")
	require.NoError(t, err)
	directory := domain.NewMemoryDirectory()
	user := &domain.User{UserID: uuid.New(), Username: "alice", Role: "admin", IsActive: true, PasswordHash: hash}
	directory.Add(user)

	tasks := async.NewTasks(recorder, directory, directory, logger, nil)
	pool := async.NewPool(tasks, 2, 16, async.DefaultRetryPolicy(), logger, nil)
	pool.Start(context.Background())
	t.Cleanup(pool.Close)
	tasks.BindQueue(pool)
	submitter := async.NewSubmitter(pool, logger)

	selectors := query.NewSelectors(store, nil, cfg, logger)
	tokens := token.NewService("test-signing-key", "fyndora")
	accounts := domain.NewAccounts(directory)
	guard := lockout.NewGuard(lockout.NewMemoryStore(), 3, time.Minute, logger)

	router := NewRouter(
		NewHandler(selectors, logger),
		NewIngestHandler(submitter, logger),
		NewAuthHandler(accounts, tokens, events, guard, logger),
		tokens,
		logger,
	)
	return &testServer{router: router, store: store, tokens: tokens, userID: user.UserID}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func (s *testServer) entriesFor(t *testing.T, action audit.ActionType) []audit.TrailEntry {
	t.Helper()
	entries, err := s.store.ListFiltered(context.Background(), audit.Filters{ActionType: action})
	require.NoError(t, err)
	return entries
}

func TestRouter_HealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/audit-logs/recent", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/audit-logs/recent", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_SuccessIssuesTokenAndAudits(t *testing.T) {
	s := newTestServer(t)

	raw := s.login(t)
	claims, err := s.tokens.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, s.userID.String(), claims.UserID)

	entries := s.entriesFor(t, audit.ActionLoginSuccess)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Actor)
	assert.Equal(t, s.userID, entries[0].Actor.ID)
}

func TestLogin_FailureAudits(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	entries := s.entriesFor(t, audit.ActionLoginFailed)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Actor)
	assert.Equal(t, "alice", entries[0].Metadata["attempted_username"])
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	s := newTestServer(t)
	bad := map[string]string{"username": "alice", "password": "wrong"}

	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/auth/login", "", bad)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/auth/login", "", bad)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Even the right password is refused while locked.
	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "s3cret"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLogout_Audits(t *testing.T) {
	s := newTestServer(t)
	raw := s.login(t)

	rec := s.do(t, http.MethodPost, "/auth/logout", raw, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	entries := s.entriesFor(t, audit.ActionLogout)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Actor)
	assert.Equal(t, s.userID, entries[0].Actor.ID)
}

func TestWorkspaceLogs_ScopedListing(t *testing.T) {
	s := newTestServer(t)
	raw := s.login(t)
	workspaceID := uuid.New()

	require.NoError(t, s.store.Append(context.Background(), audit.TrailEntry{
		AuditID:    uuid.New(),
		ActionType: audit.ActionEntryCreated,
		Workspace:  &audit.Reference{Kind: domain.KindWorkspace, ID: workspaceID},
		CreatedAt:  time.Now().UTC(),
	}))
	require.NoError(t, s.store.Append(context.Background(), audit.TrailEntry{
		AuditID:    uuid.New(),
		ActionType: audit.ActionEntryCreated,
		Workspace:  &audit.Reference{Kind: domain.KindWorkspace, ID: uuid.New()},
		CreatedAt:  time.Now().UTC(),
	}))

	rec := s.do(t, http.MethodGet, "/workspaces/"+workspaceID.String()+"/audit-logs", raw, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int               `json:"count"`
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Len(t, resp.Results, 1)
}

func TestWorkspaceLogs_RejectsBadParams(t *testing.T) {
	s := newTestServer(t)
	raw := s.login(t)

	rec := s.do(t, http.MethodGet, "/workspaces/not-a-uuid/audit-logs", raw, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/workspaces/"+uuid.NewString()+"/audit-logs?since=yesterday", raw, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_CreateReturnsAuditID(t *testing.T) {
	s := newTestServer(t)
	raw := s.login(t)

	rec := s.do(t, http.MethodPost, "/audit-logs", raw, async.CreateRequest{
		ActionType: audit.ActionEntryCreated,
		Metadata:   map[string]any{"source": "importer"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		AuditID string `json:"audit_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AuditID)

	// The caller's identity is attached when the request names no actor,
	// and ingested entries are marked as manually invoked.
	entries := s.entriesFor(t, audit.ActionEntryCreated)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Actor)
	assert.Equal(t, s.userID, entries[0].Actor.ID)
	assert.Equal(t, true, entries[0].Metadata["manual_logging"])
}

func TestIngest_CreateRequiresActionType(t *testing.T) {
	s := newTestServer(t)
	raw := s.login(t)

	rec := s.do(t, http.MethodPost, "/audit-logs", raw, async.CreateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_BulkQueuesBatch(t *testing.T) {
	s := newTestServer(t)
	raw := s.login(t)

	batch := []async.CreateRequest{
		{ActionType: audit.ActionEntryCreated},
		{ActionType: audit.ActionEntryUpdated},
	}
	rec := s.do(t, http.MethodPost, "/audit-logs/bulk", raw, batch)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Status         string `json:"status"`
		TotalSubmitted int    `json:"total_submitted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, 2, resp.TotalSubmitted)

	// Bulk work lands asynchronously.
	require.Eventually(t, func() bool {
		return s.store.Len() >= 3 // login_success plus the two batch entries
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodPost, "/audit-logs/bulk", raw, []async.CreateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
