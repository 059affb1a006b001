// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// Services receive dependencies through constructor injection: repository
// interfaces, the event publisher, and a structured logger. They apply
// transactional boundaries where a use case spans multiple writes, translate
// store-level errors into service-level sentinel errors, and never depend on
// concrete infrastructure implementations.
//
// The API layer maps the sentinel errors defined here (for example ErrNotOwned)
// to HTTP status codes; callers check them with errors.Is.
package service
