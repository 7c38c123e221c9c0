// Package config loads voicerag settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config
