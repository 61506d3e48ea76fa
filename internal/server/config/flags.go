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
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address, empty disables it
//	-d string   PostgreSQL DSN
//	-k string   verification-token codec secret
//	-f string   sender address for verification emails
//	-u string   frontend base URL used in verification links
//	-q string   SQS queue URL for audit records
//	-r string   AWS region
//	-e string   AWS endpoint override (e.g. "http://localhost:4566")
//	-l string   log level (debug, info, warn, error)
//	-b int      bcrypt cost
//
// Flags owned by other layers (-c/-config) are filtered out first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-k", "-f", "-u", "-q", "-r", "-e", "-l", "-b"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TokenCodecKey, "k", config.TokenCodecKey, "verification token codec secret")
	fs.StringVar(&config.EmailFrom, "f", config.EmailFrom, "verification email sender")
	fs.StringVar(&config.FrontendURL, "u", config.FrontendURL, "frontend base URL")
	fs.StringVar(&config.AuditQueueURL, "q", config.AuditQueueURL, "audit queue URL")
	fs.StringVar(&config.AWSRegion, "r", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSBaseEndpoint, "e", config.AWSBaseEndpoint, "AWS endpoint override")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
