// Package auth issues and verifies the HMAC-signed maintainer tokens that
// guard writes to the shared rate store.
package auth
