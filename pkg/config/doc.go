// Package config loads stockroom configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by STOCKROOM_CONFIG_FILE, then STOCKROOM_* environment variables.
// The result is validated once and treated as read-only afterwards.
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatalf("invalid configuration: %v", err)
//	}
//
// A minimal development setup:
//
//	STOCKROOM_DEV_MODE=true
//	STOCKROOM_DB_DRIVER=sqlite3
//	STOCKROOM_DB_URL=file:stockroom.db?_foreign_keys=on
//	STOCKROOM_JWT_SECRET=dev-secret
package config
