// Package events defines the task-change event types and the publisher
// contract that bridges the synchronous mutation path to the realtime
// broadcast layer.
//
// Services emit events through the TaskEventPublisher interface without
// knowing how they are delivered. The websocket layer provides the in-process
// implementation; an external pub/sub backbone could be substituted without
// touching the services.
package events
