package config

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(jwtSecret, noAuthUser, noAuthRole string) *Auth {
	return &Auth{
		jwtSecret:  jwtSecret,
		noAuthUser: noAuthUser,
		noAuthRole: noAuthRole,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, dsn string) *Repository {
	return &Repository{
		backend:   backend,
		projectID: projectID,
		dsn:       dsn,
	}
}
