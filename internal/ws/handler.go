package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avollmer/taskstream/internal/config"
)

// Handler accepts websocket connections on the task feed. The credential is
// checked before the upgrade, so a rejected connection gets a plain HTTP
// response and never touches the registry.
type Handler struct {
	authenticator TokenAuthenticator
	registry      *Registry
	upgrader      websocket.Upgrader
	logger        *slog.Logger

	sendBufferSize int
	writeTimeout   time.Duration
}

// NewHandler creates the websocket handshake handler.
func NewHandler(
	authenticator TokenAuthenticator,
	registry *Registry,
	cfg config.RealtimeConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		authenticator: authenticator,
		registry:      registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:         logger.With(slog.String("component", "ws_handler")),
		sendBufferSize: cfg.SendBufferSize,
		writeTimeout:   time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
}

// ServeHTTP authenticates the token query parameter, upgrades the connection
// and runs the session until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.logger.Debug("rejecting connection without credential",
			"remote_addr", r.RemoteAddr,
			"error", ErrHandshakeRejected)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		h.logger.Debug("rejecting connection with invalid credential",
			"remote_addr", r.RemoteAddr,
			"error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Warn("websocket upgrade failed",
			"remote_addr", r.RemoteAddr,
			"error", err)
		return
	}

	session := newSession(conn, userID, h.registry, h.logger, h.sendBufferSize, h.writeTimeout)
	if err := session.open(TaskTopic); err != nil {
		h.logger.Error("failed to open session",
			"user_id", userID,
			"error", err)
		session.Close()
		return
	}

	h.logger.Debug("session opened",
		"user_id", userID,
		"remote_addr", r.RemoteAddr)

	session.readPump()

	h.logger.Debug("session closed",
		"user_id", userID,
		"remote_addr", r.RemoteAddr)
}

// checkOrigin accepts requests without an Origin header, same-host browser
// clients and local development hosts.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := parsed.Host
	if host == r.Host {
		return true
	}
	for _, local := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == local || strings.HasPrefix(host, local+":") {
			return true
		}
	}
	return false
}
