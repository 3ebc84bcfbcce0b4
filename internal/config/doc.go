// Package config handles configuration loading for kforge.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion, then layered with per-project overrides from a .kforge.toml
// file in the project root.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from KFORGE_CONFIG environment variable
//  2. ./kforge.yaml (current directory)
//  3. ~/.config/kforge/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	project:
//	  root: "${KFORGE_PROJECT_ROOT}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	timeouts:
//	  interactive: "10s"
//	  build: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server identity:
//
//	server:
//	  name: "kforge"
//	  version: "1.0.0"
//
// Project workspace:
//
//	project:
//	  root: "/home/dev/my-app"
//	  allowed_roots:
//	    - "/home/dev/shared-libs"
//
// Audit store:
//
//	audit:
//	  db_path: ".kforge/audit.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Project Overrides
//
// A repo may carry a .kforge.toml raising capability timeouts or adding
// readable roots:
//
//	extra_roots = ["docs"]
//
//	[timeouts]
//	gradle_build = "15m"
//
// Overrides never bypass root containment checks.
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/kforge/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	overrides, err := config.LoadOverrides(cfg.Project.Root)
package config
