package authorize

import "github.com/Alijeyrad/carevisit_backend/config"

// Config holds configuration for the authorization system
type Config struct {
	// CasbinModelPath is the path to the Casbin model configuration file
	CasbinModelPath string

	// EnableAudit logs every decision and policy change
	EnableAudit bool
}

func DefaultConfig() Config {
	return Config{
		CasbinModelPath: "casbin_model.conf",
		EnableAudit:     true,
	}
}

// FromCentralConfig converts central config.AuthorizationConfig to package Config
func FromCentralConfig(c config.AuthorizationConfig) Config {
	cfg := DefaultConfig()
	if c.CasbinModelPath != "" {
		cfg.CasbinModelPath = c.CasbinModelPath
	}
	cfg.EnableAudit = c.EnableAudit
	return cfg
}
