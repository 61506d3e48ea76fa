package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/voucher-auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     base URL of the server (default from Config)
//	-t duration   request timeout, e.g. "5s" (default from Config)
//
// Only -a and -t are passed to the flag set; -c/-config belongs to parseJson.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.DurationVar(&cfg.Timeout, "t", cfg.Timeout, "request timeout")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
