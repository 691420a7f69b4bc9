package app

import (
	"strings"

	"github.com/taskhive/taskhive/internal/database"
)

// StoreConfig converts DatabaseConfig into the database package representation.
// Host based parameters are taken from whichever vendor section is enabled.
func (c DatabaseConfig) StoreConfig() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var vendor DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		vendor = c.Postgres
	case "mysql", "mariadb":
		vendor = c.MySQL
	}

	if vendor.Enabled {
		cfg.Host = vendor.Host
		cfg.Port = vendor.Port
		cfg.Name = vendor.Database
		cfg.User = vendor.Username
		cfg.Password = vendor.Password
	}

	return cfg
}
