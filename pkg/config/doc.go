// Package config provides configuration management for AstraGuard Aegis.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("aegis.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("aegis.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AEGIS_SECTION_FIELD.
// For example:
//
//   - AEGIS_MISSION_INITIAL_PHASE overrides mission.initial_phase
//   - AEGIS_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - AEGIS_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("aegis.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.Active()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., a tracker backend when the tracker is enabled)
//   - Range validation (e.g., positive sliding windows and timeouts)
//   - Format validation (e.g., listen addresses must be host:port)
//   - Logical validation (e.g., policy.watch requires policy.file_path)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - mission.initial_phase: unknown mission phase "ASCENT"
//	  - audit.sqlite.path: SQLite path is required when backend is 'sqlite'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	mission:
//	  initial_phase: "LAUNCH"
//
//	policy:
//	  file_path: "config/mission_phase_response_policy.yaml"
//	  watch: true
//
//	audit:
//	  enabled: true
//	  backend: "sqlite"
//
//	server:
//	  listen_address: "127.0.0.1:8085"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
