// Package config provides YAML-based configuration loading and validation
// for the transcription pipeline. All endpointing thresholds, audio format
// parameters and engine selections are defined here with safe defaults.
package config
