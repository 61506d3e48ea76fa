package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/flagx"
	"github.com/dmitrijs2005/voucher-auth/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Durations use timex.Duration so
// both "5s" and integer nanoseconds are accepted. Absent keys keep the value
// from the previous layer.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC    *string        `json:"endpoint_addr_grpc"`
	DatabaseDSN         string         `json:"database_dsn"`
	TokenCodecKey       string         `json:"token_codec_key"`
	EmailFrom           string         `json:"email_from"`
	FrontendURL         string         `json:"frontend_url"`
	AuditQueueURL       string         `json:"audit_queue_url"`
	AWSRegion           string         `json:"aws_region"`
	AWSAccessKey        string         `json:"aws_access_key"`
	AWSSecretKey        string         `json:"aws_secret_key"`
	AWSBaseEndpoint     string         `json:"aws_base_endpoint"`
	BcryptCost          int            `json:"bcrypt_cost"`
	DefaultPageSize     int            `json:"default_page_size"`
	MaxPageSize         int            `json:"max_page_size"`
	AuditBufferSize     int            `json:"audit_buffer_size"`
	AuditSendTimeout    timex.Duration `json:"audit_send_timeout"`
	EmailSendTimeout    timex.Duration `json:"email_send_timeout"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout"`
	DBMaxOpenConns      int            `json:"db_max_open_conns"`
	DBMaxIdleConns      int            `json:"db_max_idle_conns"`
	DBConnMaxLifetime   timex.Duration `json:"db_conn_max_lifetime"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
	HardenedLoginErrors *bool          `json:"hardened_login_errors"`
}

// parseJson loads the file named by -c/-config, if any, onto config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	if c.EndpointAddrGRPC != nil {
		config.EndpointAddrGRPC = *c.EndpointAddrGRPC
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.TokenCodecKey, c.TokenCodecKey)
	setString(&config.EmailFrom, c.EmailFrom)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.AuditQueueURL, c.AuditQueueURL)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSAccessKey, c.AWSAccessKey)
	setString(&config.AWSSecretKey, c.AWSSecretKey)
	setString(&config.AWSBaseEndpoint, c.AWSBaseEndpoint)
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.DefaultPageSize, c.DefaultPageSize)
	setInt(&config.MaxPageSize, c.MaxPageSize)
	setInt(&config.AuditBufferSize, c.AuditBufferSize)
	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	setDuration(&config.AuditSendTimeout, c.AuditSendTimeout)
	setDuration(&config.EmailSendTimeout, c.EmailSendTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setDuration(&config.DBConnMaxLifetime, c.DBConnMaxLifetime)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.HardenedLoginErrors != nil {
		config.HardenedLoginErrors = *c.HardenedLoginErrors
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
