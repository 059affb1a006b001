package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/taskstream/internal/config"
	"github.com/avollmer/taskstream/internal/domain"
	"github.com/avollmer/taskstream/internal/service"
	"github.com/avollmer/taskstream/internal/service/auth"
	"github.com/avollmer/taskstream/internal/store"
	"github.com/avollmer/taskstream/internal/ws"
)

const serverTestSecret = "server-e2e-test-secret-that-is-long-enough"

// memUserStore and memTaskStore stand in for postgres in end-to-end tests.

type memUserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *memUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return store.ErrEmailExists
	}
	hashed, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.HashedPassword = hashed
	user.Password = ""
	copied := *user
	m.byID[user.ID] = &copied
	m.byEmail[user.Email] = &copied
	return nil
}

func (m *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUserStore) WithTx(tx *sql.Tx) store.UserStore { return m }

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *memTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memTaskStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	search string,
) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), strings.ToLower(search)) &&
			!strings.Contains(strings.ToLower(task.Description), strings.ToLower(search)) {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return m }

// newTestApplication wires a full application against in-memory stores. The
// sqlmock connection only has to satisfy the transaction bookkeeping.
func newTestApplication(t *testing.T, expectTx int) *application {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for i := 0; i < expectTx; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := auth.NewTestJWTService(serverTestSecret, time.Hour, time.Now)
	registry := ws.NewRegistry(testLogger)
	publisher := ws.NewPublisher(registry, testLogger)

	app := &application{
		config: &config.Config{
			Server:   config.ServerConfig{Port: 0, LogLevel: "error"},
			Realtime: config.RealtimeConfig{SendBufferSize: 16, WriteTimeoutSeconds: 5},
		},
		logger:           testLogger,
		db:               db,
		userStore:        newMemUserStore(),
		taskStore:        newMemTaskStore(),
		jwtService:       jwtService,
		passwordVerifier: auth.NewBcryptVerifier(),
		registry:         registry,
		publisher:        publisher,
	}
	app.taskService = service.NewTaskService(app.taskStore, publisher, db, testLogger)
	return app
}

func request(
	t *testing.T,
	serverURL, method, path, token string,
	payload any,
) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, serverURL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, data
}

func readWSFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestServer_EndToEnd(t *testing.T) {
	// register + create + update + delete touch the transactional path.
	app := newTestApplication(t, 4)
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	// Health check is public.
	resp, _ := request(t, server.URL, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Task routes require authentication.
	resp, _ = request(t, server.URL, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Register an account.
	resp, body := request(t, server.URL, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "e2e@example.com",
		"password": "a-long-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered struct {
		UserID       uuid.UUID `json:"user_id"`
		AccessToken  string    `json:"token"`
		RefreshToken string    `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(body, &registered))
	require.NotEmpty(t, registered.AccessToken)

	// Connect to the task feed with the same token.
	wsEndpoint := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tasks?token=" + registered.AccessToken
	conn, wsResp, err := websocket.DefaultDialer.Dial(wsEndpoint, nil)
	require.NoError(t, err)
	if wsResp != nil && wsResp.Body != nil {
		_ = wsResp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	// An unauthenticated websocket dial is rejected before the upgrade.
	_, badResp, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(server.URL, "http")+"/ws/tasks", nil,
	)
	require.Error(t, err)
	require.NotNil(t, badResp)
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
	_ = badResp.Body.Close()

	// Create a task over HTTP; the frame arrives over the socket.
	resp, body = request(t, server.URL, http.MethodPost, "/api/tasks", registered.AccessToken,
		map[string]string{"title": "Write e2e test", "description": "the full loop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Task
	require.NoError(t, json.Unmarshal(body, &created))

	frame := readWSFrame(t, conn)
	assert.Equal(t, "task_created", frame["type"])
	assert.Equal(t, created.ID.String(), frame["task"].(map[string]any)["id"])

	// Search filter over HTTP.
	resp, body = request(t, server.URL, http.MethodGet, "/api/tasks?search=e2e", registered.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []domain.Task
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)

	// Update.
	resp, _ = request(t, server.URL, http.MethodPut, "/api/tasks/"+created.ID.String(),
		registered.AccessToken,
		map[string]any{"title": "Write e2e test", "description": "done", "completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frame = readWSFrame(t, conn)
	assert.Equal(t, "task_updated", frame["type"])
	assert.Equal(t, true, frame["task"].(map[string]any)["completed"])

	// Delete.
	resp, _ = request(t, server.URL, http.MethodDelete, "/api/tasks/"+created.ID.String(),
		registered.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	frame = readWSFrame(t, conn)
	assert.Equal(t, "task_deleted", frame["type"])
	assert.Equal(t, created.ID.String(), frame["task_id"])
	assert.NotContains(t, frame, "task")

	// The list is empty again.
	resp, body = request(t, server.URL, http.MethodGet, "/api/tasks", registered.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestServer_RefreshTokenFlow(t *testing.T) {
	app := newTestApplication(t, 1)
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	resp, body := request(t, server.URL, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "refresh-e2e@example.com",
		"password": "a-long-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(body, &registered))

	resp, body = request(t, server.URL, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": registered.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(body, &refreshed))

	// The fresh access token works on protected routes.
	resp, _ = request(t, server.URL, http.MethodGet, "/api/tasks", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout needs an authenticated caller.
	resp, _ = request(t, server.URL, http.MethodPost, "/api/auth/logout", "", map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out revokes the surrendered refresh token.
	resp, _ = request(t, server.URL, http.MethodPost, "/api/auth/logout", refreshed.AccessToken, map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = request(t, server.URL, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The access token stays valid until it expires on its own.
	resp, _ = request(t, server.URL, http.MethodGet, "/api/tasks", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
