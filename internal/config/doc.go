// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. It provides
// type-safe access to server, database, auth and projection settings while
// keeping configuration details separate from the projection engine.
package config
