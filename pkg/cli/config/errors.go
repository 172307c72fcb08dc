package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound  = goerr.New("configuration file not found")
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrDuplicateUserID = goerr.New("duplicate user ID")
	ErrMissingName     = goerr.New("name is required")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	UserIDKey     = "user_id"
	PriorityKey   = "priority"
	UserIndexKey  = "user_index"
)
