// Package config provides the configuration record for a capture run and the
// optional YAML file that supplies per-site defaults.
package config
