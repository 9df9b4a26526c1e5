// Package postgres provides PostgreSQL implementations of the rate table
// and projection run stores defined in internal/store, together with the
// embedded schema migrations they depend on.
package postgres
