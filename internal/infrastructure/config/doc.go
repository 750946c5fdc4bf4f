// Package config loads and validates Greenrack Core configuration.
//
// Configuration comes from a single YAML file with hardcoded defaults and
// environment variable overrides (GREENRACK_* pattern). The loaded Config is
// passed by value into each subsystem; nothing reads the file twice.
//
// The warehouse section is the source of truth for rack geometry (floors,
// slots) and the station list. Flow timing (settle delay, sensor debounce)
// and dispatcher pacing live here too so that commissioning a new site never
// requires a rebuild.
package config
