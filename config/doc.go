// Package config loads and validates the configuration of a Fetcher.
//
// Values come from a config.yml found next to the binary (or passed with
// WithConfigFile), then from environment variables and an optional .env
// file. Environment keys map onto nested keys by their underscores, so
// HTTPWARE_INTERCEPTORS_TIMEOUT=2s sets interceptors.timeout when loaded
// with WithEnvPrefix("HTTPWARE").
//
//	cfg, err := config.Load("billing-client", config.WithEnvPrefix("HTTPWARE"))
//	if err != nil {
//	    return err
//	}
//	f, err := bootstrap.NewFetcher(cfg)
//
// Validate reports every failing field at once as an INVALID_CONFIG error
// whose "fields" detail maps config keys to messages.
package config
