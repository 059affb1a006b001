// Package api contains the HTTP delivery layer: request/response models,
// handlers for authentication and task management, and the error mapping
// that translates internal sentinel errors into safe HTTP responses.
//
// Handlers depend on service and store interfaces, never on concrete
// infrastructure. Authentication uses Bearer JWTs validated by middleware;
// the websocket endpoint authenticates separately via a token query
// parameter (see internal/ws).
package api
