// Package auth verifies user credentials against a credential store and
// issues session tokens. Credential verification is a boundary the file store
// core never crosses: the core only ever sees an authenticated username.
package auth

import "context"

// Authenticator checks a username/password pair against a credential store.
// Implementations must compare against stored hashes, never plaintext.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}
