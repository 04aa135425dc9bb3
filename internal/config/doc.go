// Package config provides configuration structures and utilities for stealthping.
// It defines the transmission, capture and analysis settings, their defaults,
// and the optional .stealthping YAML file that overrides them.
package config
