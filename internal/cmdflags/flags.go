package cmdflags

import (
	"github.com/andrebq/notebox/internal/config"
	"github.com/urfave/cli/v2"
)

// Bind overrides the BIND environment variable when set.
func Bind(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "bind",
		Aliases:     []string{"b"},
		Usage:       "Address to listen on (overrides BIND)",
		Destination: out,
		Value:       *out,
	}
}

// Store overrides the STORE environment variable when set.
func Store(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store",
		Usage:       "Where users and notes live while the process runs: " + config.StoreMemory + " or " + config.StoreSQLite + " (overrides STORE)",
		Destination: out,
		Value:       *out,
	}
}

// LogFormat overrides the LOG_FORMAT environment variable when set.
func LogFormat(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "log-format",
		Usage:       "json or console (overrides LOG_FORMAT)",
		Destination: out,
		Value:       *out,
	}
}

// Apply copies every non-empty override into cfg.
func Apply(cfg *config.Config, bind, store, logFormat string) error {
	if bind != "" {
		cfg.Bind = bind
	}
	if store != "" {
		cfg.Store = store
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg.Validate()
}
