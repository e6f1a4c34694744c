// Package config loads and validates Wirehome Core configuration.
//
// Configuration is read from a single YAML file with three layers of
// precedence: built-in defaults, file values, then WIREHOME_* environment
// variable overrides. Validation collects every problem into one error so
// a misconfigured hub fails fast with a complete report.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	storage := storage.New(cfg.Hub.DataDir)
package config
