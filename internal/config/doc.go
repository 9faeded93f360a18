// Package config loads the orchestrator's typed configuration.
//
// Values come from environment variables, processed with
// envconfig.Process against the ORCH_ prefix, optionally overlaid on
// top of a YAML file read first. Environment variables always win over
// the file, matching the usual "file for defaults, env for overrides"
// convention: an operator can commit a config.yaml and still bump
// ORCH_LISTEN_ADDR for one deployment without editing it.
package config
