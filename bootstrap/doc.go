// Package bootstrap assembles a ready-to-use Fetcher from a config.Config.
//
// NewFetcher builds the terminal transport, wires the telemetry providers
// and seeds the fixed interceptors the configuration enables, in a stable
// order. Interceptors added later with Use run after them.
//
//	cfg, _ := config.Load("billing-client")
//	f, err := bootstrap.NewFetcher(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer f.Shutdown(context.Background())
//
//	resp, err := f.Fetch(ctx, "/invoices/42")
package bootstrap
