// Package config manages user-level settings stored at ~/.swinstall/config.yaml.
// It wraps Viper for reading and writing individual keys and assembles the
// typed Settings object that is handed to the catalog, cache, search, and
// dispatch constructors.
package config
