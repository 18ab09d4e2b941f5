// Package config loads sangbot configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Default values for optional settings.
const (
	DefaultPort     = "3000"
	DefaultLogLevel = "info"
)

// Config holds everything the bot needs to talk to LINE and Google.
type Config struct {
	// HTTP
	Port string

	// Logging
	LogLevel string

	// LINE Messaging API channel access token (bearer).
	LineToken string

	// Google Sheets spreadsheet holding the stock and orders tabs.
	SheetID string

	// Google Drive folder that receives archived voice clips.
	VoiceFolderID string

	// Service-account credentials for Sheets, Drive and Speech-to-Text.
	GoogleClientEmail string
	GooglePrivateKey  string
}

// Load reads configuration from environment variables.
// It fails fast on anything the bot cannot run without.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              envOr("PORT", DefaultPort),
		LogLevel:          envOr("LOG_LEVEL", DefaultLogLevel),
		LineToken:         os.Getenv("LINE_TOKEN"),
		SheetID:           os.Getenv("SHEET_ID"),
		VoiceFolderID:     os.Getenv("VOICE_FOLDER_ID"),
		GoogleClientEmail: os.Getenv("GOOGLE_CLIENT_EMAIL"),
		GooglePrivateKey:  normalizeKey(os.Getenv("GOOGLE_PRIVATE_KEY")),
	}

	var missing []string
	if cfg.LineToken == "" {
		missing = append(missing, "LINE_TOKEN")
	}
	if cfg.SheetID == "" {
		missing = append(missing, "SHEET_ID")
	}
	if cfg.GoogleClientEmail == "" {
		missing = append(missing, "GOOGLE_CLIENT_EMAIL")
	}
	if cfg.GooglePrivateKey == "" {
		missing = append(missing, "GOOGLE_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required env vars: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// normalizeKey turns the literal "\n" sequences that hosting dashboards
// insert into PEM keys back into real newlines.
func normalizeKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}
