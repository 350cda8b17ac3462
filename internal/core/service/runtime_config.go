package service

// =============================================================================
// Runtime Configuration
// =============================================================================

// RuntimeConfig carries the runtime settings injected into a newly deployed
// container. Values are supplied by the invoking pipeline from its secret
// store; the orchestrator treats them as opaque and never logs or persists
// them.
type RuntimeConfig struct {
	SecretKey   string
	DatabaseURL string
	Environment string
}

// Env returns the environment variables to inject into the container.
// Empty values are omitted so the image's own defaults apply.
func (c RuntimeConfig) Env() map[string]string {
	env := make(map[string]string)
	if c.SecretKey != "" {
		env["SECRET_KEY"] = c.SecretKey
	}
	if c.DatabaseURL != "" {
		env["DATABASE_URL"] = c.DatabaseURL
	}
	if c.Environment != "" {
		env["ENVIRONMENT"] = c.Environment
	}
	return env
}
