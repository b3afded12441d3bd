package config

import (
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/sheets"
)

// SheetsWriterConfig builds the Sheets writer configuration. Values from
// the config file or CLVFLOW_SHEETS_* win; unset fields fall back to the
// GOOGLE_SHEETS_* environment variables, then the defaults.
func (c *Config) SheetsWriterConfig() (sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	s := c.Sheets
	cfg.ClientID = s.ClientID
	cfg.ClientSecret = s.ClientSecret
	cfg.RefreshToken = s.RefreshToken
	cfg.TokenFile = ExpandPath(s.TokenFile)
	cfg.ServiceAccountPath = ExpandPath(s.ServiceAccountPath)
	cfg.SpreadsheetID = s.SpreadsheetID
	cfg.SpreadsheetName = s.SpreadsheetName
	if s.BatchSize > 0 {
		cfg.BatchSize = s.BatchSize
	}

	cfg.LoadFromEnv()
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)

	if err := cfg.Validate(); err != nil {
		return sheets.Config{}, err
	}
	return cfg, nil
}
