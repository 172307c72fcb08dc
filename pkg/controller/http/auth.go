package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// Authenticator establishes the actor of an HTTP request
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.Actor, error)
}

// RoleClaim is the JWT claim carrying the organizational role
const RoleClaim = "role"

// clockSkew is tolerated between the identity provider and this server
const clockSkew = 10 * time.Second

// JWTAuthenticator verifies HS256 bearer tokens issued by the identity provider. The actor is
// taken from the "sub" and "role" claims.
type JWTAuthenticator struct {
	secret   []byte
	audience string
}

func NewJWTAuthenticator(secret []byte, audience string) (*JWTAuthenticator, error) {
	if len(secret) == 0 {
		return nil, goerr.New("JWT secret is required")
	}
	return &JWTAuthenticator{secret: secret, audience: audience}, nil
}

func (x *JWTAuthenticator) Authenticate(r *http.Request) (*auth.Actor, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, goerr.New("bearer token is required")
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, x.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(clockSkew),
	}
	if x.audience != "" {
		opts = append(opts, jwt.WithAudience(x.audience))
	}

	token, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse or verify JWT token")
	}

	sub := token.Subject()
	if sub == "" {
		return nil, goerr.New("sub claim not found in token")
	}

	roleClaim, ok := token.Get(RoleClaim)
	if !ok {
		return nil, goerr.New("role claim not found in token", goerr.V("sub", sub))
	}
	roleStr, ok := roleClaim.(string)
	if !ok {
		return nil, goerr.New("role claim is not a string", goerr.V("sub", sub))
	}
	role, err := types.ParseRole(strings.ToUpper(roleStr))
	if err != nil {
		return nil, goerr.Wrap(err, "invalid role claim", goerr.V("sub", sub))
	}

	return &auth.Actor{ID: sub, Role: role}, nil
}

const (
	HeaderUserID = "X-Flowsync-User"
	HeaderRole   = "X-Flowsync-Role"
)

// NoAuthnAuthenticator trusts the X-Flowsync-User and X-Flowsync-Role headers and falls back
// to a fixed actor. It is meant for local development only.
type NoAuthnAuthenticator struct {
	fallback *auth.Actor
}

func NewNoAuthnAuthenticator(fallback *auth.Actor) *NoAuthnAuthenticator {
	return &NoAuthnAuthenticator{fallback: fallback}
}

func (x *NoAuthnAuthenticator) Authenticate(r *http.Request) (*auth.Actor, error) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		if x.fallback == nil {
			return nil, goerr.New("no actor header and no fallback actor")
		}
		return x.fallback, nil
	}

	role := types.RoleMember
	if v := r.Header.Get(HeaderRole); v != "" {
		parsed, err := types.ParseRole(strings.ToUpper(v))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid role header")
		}
		role = parsed
	}
	return &auth.Actor{ID: userID, Role: role}, nil
}
