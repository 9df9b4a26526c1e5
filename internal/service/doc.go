// Package service contains the application use cases. It orchestrates the
// projection engine, the capital calculator and the stores defined in
// internal/store to run, persist and serve projections and to maintain the
// shared decrement bases.
//
// Services receive their dependencies through constructor injection and
// depend only on store interfaces, never on a concrete database.
//
// Error handling:
//   - Domain errors (invalid configuration, invalid domain, missing rate)
//     pass through wrapped so callers can use errors.Is.
//   - Store not-found errors are translated to ErrBasisNotFound and
//     ErrRunNotFound.
//   - Anything else is wrapped in a ServiceError.
package service
