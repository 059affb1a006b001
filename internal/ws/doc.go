// Package ws implements the real-time broadcast layer: websocket sessions,
// the topic registry they join, and the event publisher that fans task
// change notifications out to every connected client.
//
// Key components:
//
// 1. Registry:
//   - Thread-safe mapping from topic names to session membership
//   - Broadcast delivers to a point-in-time snapshot of members, at most
//     once per session per call, and never holds its lock across socket I/O
//
// 2. Session:
//   - One per websocket connection, with dedicated read and write goroutines
//   - Outbound frames pass through a buffered channel; a session whose
//     buffer is full at delivery time is disconnected rather than allowed
//     to stall the rest of the topic
//
// 3. Publisher:
//   - Implements events.TaskEventPublisher over the registry
//   - Best-effort: every failure is logged and swallowed so the mutation
//     that triggered the notification always succeeds independently
//
// 4. Handler:
//   - Authenticates the token query parameter before upgrading, so
//     unauthenticated connections are rejected with a plain HTTP status
//     and never join a topic
package ws
