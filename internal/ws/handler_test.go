package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/taskstream/internal/config"
	"github.com/avollmer/taskstream/internal/domain"
	"github.com/avollmer/taskstream/internal/service/auth"
)

const handlerTestSecret = "this-is-a-test-secret-that-is-long-enough"

func newTestServer(t *testing.T) (*httptest.Server, *Registry, auth.JWTService) {
	t.Helper()

	jwtService := auth.NewTestJWTService(handlerTestSecret, time.Hour, time.Now)
	registry := NewRegistry(testLogger())
	handler := NewHandler(
		NewJWTAuthenticator(jwtService),
		registry,
		config.RealtimeConfig{SendBufferSize: 16, WriteTimeoutSeconds: 5},
		testLogger(),
	)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, registry, jwtService
}

func wsURL(server *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(server.URL, "http")
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func dialClient(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForMembers(t *testing.T, registry *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for registry.MemberCount(TaskTopic) != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d members, have %d",
				want, registry.MemberCount(TaskTopic))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	t.Parallel()

	server, registry, _ := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.MemberCount(TaskTopic))
}

func TestHandler_RejectsInvalidToken(t *testing.T) {
	t.Parallel()

	server, registry, _ := newTestServer(t)

	for _, token := range []string{
		"not-a-jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.forged.signature",
	} {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
		require.Error(t, err)
		require.Nil(t, conn)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Equal(t, 0, registry.MemberCount(TaskTopic))
}

func TestHandler_AuthenticatedClientReceivesEvents(t *testing.T) {
	t.Parallel()

	server, registry, jwtService := newTestServer(t)

	userID := uuid.New()
	token, err := jwtService.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	conn := dialClient(t, server, token)
	waitForMembers(t, registry, 1)

	publisher := NewPublisher(registry, testLogger())
	task, err := domain.NewTask(userID, "Ship release", "cut the tag")
	require.NoError(t, err)

	publisher.OnTaskCreated(context.Background(), task)
	frame := readFrame(t, conn)
	assert.Equal(t, "task_created", frame["type"])
	taskObj := frame["task"].(map[string]any)
	assert.Equal(t, task.ID.String(), taskObj["id"])
	assert.Equal(t, "Ship release", taskObj["title"])

	publisher.OnTaskUpdated(context.Background(), task)
	frame = readFrame(t, conn)
	assert.Equal(t, "task_updated", frame["type"])

	publisher.OnTaskDeleted(context.Background(), task.ID)
	frame = readFrame(t, conn)
	assert.Equal(t, "task_deleted", frame["type"])
	assert.Equal(t, task.ID.String(), frame["task_id"])
	assert.NotContains(t, frame, "task")
}

func TestHandler_FanOutToAllClients(t *testing.T) {
	t.Parallel()

	server, registry, jwtService := newTestServer(t)

	// Events go to every connected client regardless of who owns the task.
	aliceToken, err := jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)
	bobToken, err := jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	alice := dialClient(t, server, aliceToken)
	bob := dialClient(t, server, bobToken)
	waitForMembers(t, registry, 2)

	publisher := NewPublisher(registry, testLogger())
	task, err := domain.NewTask(uuid.New(), "Shared visibility", "")
	require.NoError(t, err)
	publisher.OnTaskCreated(context.Background(), task)

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		assert.Equal(t, "task_created", frame["type"])
	}
}

func TestHandler_DisconnectLeavesOthersUnaffected(t *testing.T) {
	t.Parallel()

	server, registry, jwtService := newTestServer(t)

	stayToken, err := jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)
	leaveToken, err := jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	staying := dialClient(t, server, stayToken)
	leaving := dialClient(t, server, leaveToken)
	waitForMembers(t, registry, 2)

	require.NoError(t, leaving.Close())
	waitForMembers(t, registry, 1)

	publisher := NewPublisher(registry, testLogger())
	task, err := domain.NewTask(uuid.New(), "Still delivered", "")
	require.NoError(t, err)
	publisher.OnTaskCreated(context.Background(), task)

	frame := readFrame(t, staying)
	assert.Equal(t, "task_created", frame["type"])
}

func TestHandler_InboundFramesAreIgnored(t *testing.T) {
	t.Parallel()

	server, registry, jwtService := newTestServer(t)

	token, err := jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)
	conn := dialClient(t, server, token)
	waitForMembers(t, registry, 1)

	// Garbage from the client is logged server-side and changes nothing.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"evil"}`)))

	publisher := NewPublisher(registry, testLogger())
	task, err := domain.NewTask(uuid.New(), "Unbothered", "")
	require.NoError(t, err)
	publisher.OnTaskCreated(context.Background(), task)

	frame := readFrame(t, conn)
	assert.Equal(t, "task_created", frame["type"])
	assert.Equal(t, 1, registry.MemberCount(TaskTopic))
}
