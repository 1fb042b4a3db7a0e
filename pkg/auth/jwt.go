package auth

import (
	"context"
	"fmt"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// JWT validates HS256 bearer tokens signed with a shared secret.
type JWT struct {
	secret    []byte
	userClaim string
}

// NewJWT returns a JWT authenticator reading the user from userClaim,
// "sub" when empty.
func NewJWT(secret, userClaim string) *JWT {
	if userClaim == "" {
		userClaim = "sub"
	}
	return &JWT{secret: []byte(secret), userClaim: userClaim}
}

func (j *JWT) Authenticate(_ context.Context, r *http.Request) Result {
	tokenStr, ok := bearerToken(r)
	if !ok {
		return Result{Decision: Abstain}
	}
	if tokenStr == "" {
		return Result{Decision: No, Err: fmt.Errorf("empty bearer token")}
	}

	token, err := jwtlib.Parse(tokenStr, func(*jwtlib.Token) (any, error) {
		return j.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Result{Decision: No, Err: fmt.Errorf("invalid JWT: %w", err)}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return Result{Decision: No, Err: fmt.Errorf("invalid JWT claims")}
	}
	user, _ := claims[j.userClaim].(string)
	if user == "" {
		return Result{Decision: No, Err: fmt.Errorf("JWT missing %q claim", j.userClaim)}
	}
	return Result{Decision: Yes, User: user}
}

// TrustedHeader takes the user from a header set by a reverse proxy that
// already authenticated the request.
type TrustedHeader string

func (h TrustedHeader) Authenticate(_ context.Context, r *http.Request) Result {
	if user := r.Header.Get(string(h)); user != "" {
		return Result{Decision: Yes, User: user}
	}
	return Result{Decision: Abstain}
}
