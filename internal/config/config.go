// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SpreadsheetID       string
	ServiceAccountEmail string
	PrivateKey          string
	ListenAddr          string
	DBPath              string
	HandleTTL           time.Duration
	CountSheet          string
	CatalogSheet        string
	RosterSheet         string
}

// Load reads configuration from environment variables and returns a validated
// Config. SHEETBRIDGE_SPREADSHEET_ID, SHEETBRIDGE_SERVICE_ACCOUNT_EMAIL, and
// SHEETBRIDGE_PRIVATE_KEY are required. Optional variables with defaults:
// SHEETBRIDGE_LISTEN_ADDR (127.0.0.1:8080), SHEETBRIDGE_DB_PATH
// (sheetbridge.db, empty disables the submission journal),
// SHEETBRIDGE_HANDLE_TTL (5m), and the sheet names SHEETBRIDGE_COUNT_SHEET
// (SoRawan), SHEETBRIDGE_CATALOG_SHEET (List_so), SHEETBRIDGE_ROSTER_SHEET
// (Absensi).
func Load() (*Config, error) {
	spreadsheetID := os.Getenv("SHEETBRIDGE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		return nil, fmt.Errorf("SHEETBRIDGE_SPREADSHEET_ID is required")
	}

	email := os.Getenv("SHEETBRIDGE_SERVICE_ACCOUNT_EMAIL")
	if email == "" {
		return nil, fmt.Errorf("SHEETBRIDGE_SERVICE_ACCOUNT_EMAIL is required")
	}

	// Deployment environments often carry the key with literal \n sequences;
	// the signer normalizes those before parsing.
	privateKey := os.Getenv("SHEETBRIDGE_PRIVATE_KEY")
	if privateKey == "" {
		return nil, fmt.Errorf("SHEETBRIDGE_PRIVATE_KEY is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SHEETBRIDGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "sheetbridge.db"
	if v, ok := os.LookupEnv("SHEETBRIDGE_DB_PATH"); ok {
		dbPath = v
	}

	handleTTL := 5 * time.Minute
	if v, ok := os.LookupEnv("SHEETBRIDGE_HANDLE_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SHEETBRIDGE_HANDLE_TTL has invalid duration %q: %w", v, err)
		}
		handleTTL = parsed
	}

	countSheet := "SoRawan"
	if v, ok := os.LookupEnv("SHEETBRIDGE_COUNT_SHEET"); ok && v != "" {
		countSheet = v
	}

	catalogSheet := "List_so"
	if v, ok := os.LookupEnv("SHEETBRIDGE_CATALOG_SHEET"); ok && v != "" {
		catalogSheet = v
	}

	rosterSheet := "Absensi"
	if v, ok := os.LookupEnv("SHEETBRIDGE_ROSTER_SHEET"); ok && v != "" {
		rosterSheet = v
	}

	return &Config{
		SpreadsheetID:       spreadsheetID,
		ServiceAccountEmail: email,
		PrivateKey:          privateKey,
		ListenAddr:          listenAddr,
		DBPath:              dbPath,
		HandleTTL:           handleTTL,
		CountSheet:          countSheet,
		CatalogSheet:        catalogSheet,
		RosterSheet:         rosterSheet,
	}, nil
}
