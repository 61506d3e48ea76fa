package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/voucher-auth/internal/flagx"
	"github.com/dmitrijs2005/voucher-auth/internal/timex"
)

// JsonConfig is used only for unmarshalling. Timeout accepts "5s" as well as
// integer nanoseconds.
type JsonConfig struct {
	ServerURL string         `json:"server_url"`
	Timeout   timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Keys missing from
// the file leave the defaults in place.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.Timeout.Duration != 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
