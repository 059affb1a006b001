package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Broadcaster is the delivery surface the publisher depends on, kept narrow
// so tests can substitute the registry.
type Broadcaster interface {
	// Broadcast delivers a frame to every current member of the topic.
	Broadcast(topic string, frame []byte) error
}

// Registry maps topic names to session membership. It is an injectable
// component: callers construct one and pass it where needed, there is no
// package-level instance.
//
// Delivery never happens under the registry lock. Broadcast snapshots the
// membership, releases the lock, then hands the frame to each session's
// buffered send channel.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[*Session]struct{}
	logger *slog.Logger
}

var _ Broadcaster = (*Registry)(nil)

// NewRegistry creates an empty topic registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		topics: make(map[string]map[*Session]struct{}),
		logger: logger.With(slog.String("component", "ws_registry")),
	}
}

// Join adds the session to the topic. Joining a topic the session is already
// a member of is a no-op. Returns ErrSessionClosed for a torn-down session.
func (r *Registry) Join(topic string, s *Session) error {
	if err := s.addTopic(topic); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.topics[topic]
	if !ok {
		members = make(map[*Session]struct{})
		r.topics[topic] = members
	}
	members[s] = struct{}{}
	return nil
}

// Leave removes the session from the topic. Leaving a topic the session is
// not a member of is a no-op.
func (r *Registry) Leave(topic string, s *Session) {
	r.mu.Lock()
	if members, ok := r.topics[topic]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(r.topics, topic)
		}
	}
	r.mu.Unlock()

	s.removeTopic(topic)
}

// Broadcast delivers the frame to a point-in-time snapshot of the topic's
// membership, at most once per session. A recipient that cannot accept the
// frame is torn down; its failure never prevents delivery to the others.
// Returns an error wrapping ErrDeliveryFailed when any recipient was dropped.
func (r *Registry) Broadcast(topic string, frame []byte) error {
	r.mu.RLock()
	members := r.topics[topic]
	snapshot := make([]*Session, 0, len(members))
	for s := range members {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	var dropped int
	for _, s := range snapshot {
		err := s.deliver(frame)
		if err == nil {
			continue
		}
		dropped++
		if errors.Is(err, ErrSessionClosed) {
			// Stale membership: the session closed between registration
			// bookkeeping steps, so its own teardown never left the topic.
			r.logger.Debug("purging closed session",
				"topic", topic,
				"user_id", s.userID)
			r.Leave(topic, s)
			continue
		}
		r.logger.Warn("dropping unresponsive session",
			"topic", topic,
			"user_id", s.userID,
			"error", err)
		s.Close()
	}

	if dropped > 0 {
		return fmt.Errorf("%w: %d of %d recipients dropped",
			ErrDeliveryFailed, dropped, len(snapshot))
	}
	return nil
}

// MemberCount reports the current number of sessions joined to the topic.
func (r *Registry) MemberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}
