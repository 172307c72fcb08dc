package config

import (
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/flowsync/pkg/controller/http"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

type Auth struct {
	jwtSecret   string
	jwtAudience string
	noAuthUser  string
	noAuthRole  string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HS256 secret used to verify identity tokens",
			Category:    "Authentication",
			Destination: &x.jwtSecret,
			Sources:     cli.EnvVars("FLOWSYNC_JWT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "jwt-audience",
			Usage:       "Expected audience of identity tokens",
			Category:    "Authentication",
			Destination: &x.jwtAudience,
			Sources:     cli.EnvVars("FLOWSYNC_JWT_AUDIENCE"),
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and act as the given user ID unless X-Flowsync-User is sent (development only)",
			Category:    "Authentication",
			Destination: &x.noAuthUser,
			Sources:     cli.EnvVars("FLOWSYNC_NO_AUTH"),
		},
		&cli.StringFlag{
			Name:        "no-auth-role",
			Usage:       "Role of the --no-auth user [MEMBER|LEADER|ADMIN]",
			Category:    "Authentication",
			Value:       string(types.RoleMember),
			Destination: &x.noAuthRole,
			Sources:     cli.EnvVars("FLOWSYNC_NO_AUTH_ROLE"),
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt-secret.len", len(x.jwtSecret)),
		slog.String("jwt-audience", x.jwtAudience),
		slog.String("no-auth", x.noAuthUser),
		slog.String("no-auth-role", x.noAuthRole),
	)
}

func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUser != ""
}

// Configure returns the authenticator of the HTTP server. Exactly one of --jwt-secret and
// --no-auth must be set.
func (x *Auth) Configure() (httpctrl.Authenticator, error) {
	switch {
	case x.jwtSecret != "" && x.noAuthUser != "":
		return nil, goerr.Wrap(ErrInvalidConfig, "--jwt-secret and --no-auth are mutually exclusive")

	case x.jwtSecret != "":
		return httpctrl.NewJWTAuthenticator([]byte(x.jwtSecret), x.jwtAudience)

	case x.noAuthUser != "":
		role, err := types.ParseRole(strings.ToUpper(x.noAuthRole))
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidConfig, "invalid --no-auth-role", goerr.V("role", x.noAuthRole))
		}
		return httpctrl.NewNoAuthnAuthenticator(&auth.Actor{ID: x.noAuthUser, Role: role}), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "either --jwt-secret or --no-auth is required")
	}
}
