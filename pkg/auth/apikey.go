package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader carries an API key when the Authorization header is used
// for something else.
const APIKeyHeader = "X-API-Key"

type keyEntry struct {
	hash [32]byte
	user string
}

// APIKeys authenticates static keys sent in the X-API-Key header or as a
// bearer token. Keys are kept hashed.
type APIKeys struct {
	keys []keyEntry
}

// NewAPIKeys builds an authenticator from a key to user map.
func NewAPIKeys(keys map[string]string) *APIKeys {
	a := &APIKeys{}
	for key, user := range keys {
		a.keys = append(a.keys, keyEntry{hash: sha256.Sum256([]byte(key)), user: user})
	}
	return a
}

func (a *APIKeys) lookup(key string) (string, bool) {
	h := sha256.Sum256([]byte(key))
	for _, e := range a.keys {
		if subtle.ConstantTimeCompare(h[:], e.hash[:]) == 1 {
			return e.user, true
		}
	}
	return "", false
}

// Authenticate rejects unknown X-API-Key values. Unknown bearer tokens are
// left to the next authenticator since they may be JWTs.
func (a *APIKeys) Authenticate(_ context.Context, r *http.Request) Result {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		if user, ok := a.lookup(key); ok {
			return Result{Decision: Yes, User: user}
		}
		return Result{Decision: No, Err: ErrUnauthenticated}
	}

	token, ok := bearerToken(r)
	if !ok {
		return Result{Decision: Abstain}
	}
	if user, ok := a.lookup(token); ok {
		return Result{Decision: Yes, User: user}
	}
	return Result{Decision: Abstain}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}
