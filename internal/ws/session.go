package ws

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionState tracks a session's progress through its lifecycle. Transitions
// only move forward; StateClosed is terminal and reachable from any state.
type SessionState int32

const (
	// StateConnecting is the initial state after the transport is established.
	StateConnecting SessionState = iota

	// StateAuthenticating means the session's credential is being verified.
	StateAuthenticating

	// StateJoined means the session is registered with its topic but the
	// read/write pumps have not started yet.
	StateJoined

	// StateOpen means the session is fully operational and receiving
	// broadcast frames.
	StateOpen

	// StateClosed is terminal. A closed session is unregistered from every
	// topic and its connection and send channel are released.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// pongWait is how long to wait for a pong before the connection is
	// considered dead.
	pongWait = 60 * time.Second

	// pingPeriod is how often keepalive pings are sent. Must be less than
	// pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxInboundMessageSize bounds inbound frames. Clients are not expected
	// to send anything; inbound traffic is logged and ignored.
	maxInboundMessageSize = 512
)

// Session is one authenticated websocket connection. Outbound frames pass
// through a buffered send channel drained by a dedicated write goroutine, so
// broadcasters never block on socket I/O.
//
// The user identity is fixed at construction and never changes afterwards.
type Session struct {
	userID   uuid.UUID
	conn     *websocket.Conn
	registry *Registry
	logger   *slog.Logger

	send         chan []byte
	writeTimeout time.Duration

	mu     sync.Mutex
	state  SessionState
	topics map[string]struct{}
}

func newSession(
	conn *websocket.Conn,
	userID uuid.UUID,
	registry *Registry,
	logger *slog.Logger,
	sendBufferSize int,
	writeTimeout time.Duration,
) *Session {
	return &Session{
		userID:       userID,
		conn:         conn,
		registry:     registry,
		logger:       logger.With(slog.String("component", "ws_session")),
		send:         make(chan []byte, sendBufferSize),
		writeTimeout: writeTimeout,
		state:        StateConnecting,
		topics:       make(map[string]struct{}),
	}
}

// UserID returns the identity the session authenticated as.
func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition advances the session to the next lifecycle state. Only the
// immediate successor state is accepted; a closed session rejects everything.
func (s *Session) transition(to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if to != s.state+1 {
		return fmt.Errorf("invalid session transition from %s to %s", s.state, to)
	}
	s.state = to
	return nil
}

// open walks the session through authentication bookkeeping, topic
// registration and pump startup. The credential itself was verified before
// the upgrade; open records the progression and wires the session into the
// registry.
func (s *Session) open(topic string) error {
	if err := s.transition(StateAuthenticating); err != nil {
		return err
	}
	if err := s.registry.Join(topic, s); err != nil {
		return err
	}
	if err := s.transition(StateJoined); err != nil {
		return err
	}
	go s.writePump()
	return s.transition(StateOpen)
}

// addTopic records a topic membership so teardown can unregister it later.
func (s *Session) addTopic(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	s.topics[topic] = struct{}{}
	return nil
}

func (s *Session) removeTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, topic)
}

// deliver hands a frame to the session's send buffer without blocking.
// Returns ErrSessionClosed for a torn-down session and ErrDeliveryFailed when
// the buffer is full; the caller decides whether to disconnect the session.
func (s *Session) deliver(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full", ErrDeliveryFailed)
	}
}

// Close tears the session down: marks it closed, unregisters it from every
// joined topic, releases the send channel and closes the connection. Safe to
// call multiple times and from any state, including before any topic was
// joined.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	s.topics = nil
	close(s.send)
	s.mu.Unlock()

	for _, topic := range topics {
		s.registry.Leave(topic, s)
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// readPump consumes inbound frames until the connection drops. Clients have
// nothing to say on this channel, so frames are logged and discarded; a bad
// frame never closes the session, only a transport error does.
func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(maxInboundMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("session read error",
					"user_id", s.userID,
					"error", err)
			}
			return
		}
		s.logger.Debug("ignoring inbound frame",
			"user_id", s.userID,
			"size", len(message))
	}
}

// writePump drains the send buffer onto the wire and emits keepalive pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
