package cli

var (
	NewHTTPServer    = newHTTPServer
	GracefulShutdown = gracefulShutdown
	GetIndexConfig   = getIndexConfig
)
