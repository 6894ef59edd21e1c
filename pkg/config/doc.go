// Package config loads fleetd's YAML configuration file and, via Watcher,
// hot-reloads its log level from fsnotify file-change events without a
// process restart. Listen addresses are read once at startup; only the
// log level is live-reloadable in this version.
package config
