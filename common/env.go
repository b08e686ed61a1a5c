package common

// Environment variable names for configuration.
const (
	// ServerURLEnv overrides the daemon base URL used by the client.
	ServerURLEnv = "TUBEQUEUE_SERVER_URL"

	// ConfigDirEnv overrides the default configuration directory.
	ConfigDirEnv = "TUBEQUEUE_CONFIG_DIR"

	// RPCSecretEnv supplies the RPC secret when the OS keyring is
	// unavailable (e.g. headless machines, CI).
	RPCSecretEnv = "TUBEQUEUE_RPC_SECRET"

	// DebugEnv enables debug logging.
	DebugEnv = "TUBEQUEUE_DEBUG"
)
