package source

import "archivist/internal/platform/config"

// Config configures the GCS backend
type Config struct {
	Endpoint        string
	CredentialsFile string
	Anonymous       bool
}

// FromConfig reads ARCHIVIST_GCS_*
func FromConfig(cfg config.Conf) Config {
	gc := cfg.Prefix("ARCHIVIST_GCS_")
	return Config{
		Endpoint:        gc.MayString("ENDPOINT", ""),
		CredentialsFile: gc.MayString("CREDENTIALS_FILE", ""),
		Anonymous:       gc.MayBool("ANONYMOUS", false),
	}
}
