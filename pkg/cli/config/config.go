package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/interfaces"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application configuration file
type AppConfig struct {
	SLA   SLA    `toml:"sla"`
	Users []User `toml:"user"`
}

// SLA overrides the working day budget per priority. Zero keeps the default.
// Timezone is an IANA name deciding which days are weekends; empty means UTC.
type SLA struct {
	Urgent    int    `toml:"urgent"`
	Regular   int    `toml:"regular"`
	Important int    `toml:"important"`
	Timezone  string `toml:"timezone"`
}

// User is a roster entry seeded into the repository at startup
type User struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Role     string `toml:"role"`
	LeaderID string `toml:"leader"`
	Inactive bool   `toml:"inactive"`
}

// Validate checks if the User is valid
func (u *User) Validate() error {
	if u.ID == "" {
		return goerr.Wrap(ErrInvalidConfig, "user ID is required")
	}
	if u.Name == "" {
		return goerr.Wrap(ErrMissingName, "user name is required", goerr.V(UserIDKey, u.ID))
	}
	if _, err := types.ParseRole(strings.ToUpper(u.Role)); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid user role", goerr.V(UserIDKey, u.ID), goerr.V("role", u.Role))
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	for priority, days := range map[types.Priority]int{
		types.PriorityUrgent:    a.SLA.Urgent,
		types.PriorityRegular:   a.SLA.Regular,
		types.PriorityImportant: a.SLA.Important,
	} {
		if days < 0 {
			return goerr.Wrap(ErrInvalidConfig, "working days must not be negative",
				goerr.V(PriorityKey, priority), goerr.V("days", days))
		}
	}

	if a.SLA.Timezone != "" {
		if _, err := time.LoadLocation(a.SLA.Timezone); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "unknown timezone", goerr.V("timezone", a.SLA.Timezone))
		}
	}

	userIDs := make(map[string]bool)
	for i, u := range a.Users {
		if err := u.Validate(); err != nil {
			return goerr.Wrap(err, "invalid user", goerr.V(UserIndexKey, i))
		}
		if userIDs[u.ID] {
			return goerr.Wrap(ErrDuplicateUserID, "duplicate user ID", goerr.V(UserIDKey, u.ID))
		}
		userIDs[u.ID] = true
	}

	for _, u := range a.Users {
		if u.LeaderID != "" && !userIDs[u.LeaderID] {
			return goerr.Wrap(ErrInvalidConfig, "leader is not in the roster",
				goerr.V(UserIDKey, u.ID), goerr.V("leader", u.LeaderID))
		}
	}

	return nil
}

// Policy returns the deadline policy with the configured overrides applied
func (a *AppConfig) Policy() sla.Policy {
	policy := sla.DefaultPolicy()
	for priority, days := range map[types.Priority]int{
		types.PriorityUrgent:    a.SLA.Urgent,
		types.PriorityRegular:   a.SLA.Regular,
		types.PriorityImportant: a.SLA.Important,
	} {
		if days > 0 {
			policy.WorkingDays[priority] = days
		}
	}
	if a.SLA.Timezone != "" {
		// validated on load
		if loc, err := time.LoadLocation(a.SLA.Timezone); err == nil {
			policy.Location = loc
		}
	}
	return policy
}

// DomainUsers converts the roster to domain users
func (a *AppConfig) DomainUsers() []*model.User {
	users := make([]*model.User, len(a.Users))
	for i, u := range a.Users {
		users[i] = &model.User{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Role:     types.Role(strings.ToUpper(u.Role)),
			LeaderID: u.LeaderID,
			Active:   !u.Inactive,
		}
	}
	return users
}

// SeedUsers writes the roster into repo. Existing users are overwritten.
func (a *AppConfig) SeedUsers(ctx context.Context, repo interfaces.Repository) error {
	for _, u := range a.DomainUsers() {
		if err := repo.User().Put(ctx, u); err != nil {
			return goerr.Wrap(err, "failed to seed user", goerr.V(UserIDKey, u.ID))
		}
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file (SLA policy and user roster)",
			Sources:     cli.EnvVars("FLOWSYNC_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x App) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the configuration file. Without --config an empty configuration is returned.
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(x.path)
}
