// Command fetchprobe performs one request through a configured Fetcher and
// reports what came back.
//
//	fetchprobe https://api.example.com/health --config ./config.yml -i
//	FETCHPROBE_INTERCEPTORS_TIMEOUT=2s fetchprobe /health --summary
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpware/bootstrap"
	"github.com/kbukum/httpware/config"
	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/version"
)

const serviceName = "fetchprobe"

type probeOptions struct {
	configFile   string
	envFile      string
	method       string
	headers      []string
	data         string
	include      bool
	showBody     bool
	summary      bool
	otlpEndpoint string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:           serviceName + " <url>",
		Short:         "Send one request through a configured interceptor chain",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), out, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "path to config.yml (default: searched next to the binary)")
	flags.StringVar(&opts.envFile, "env-file", "", "path to a .env file")
	flags.StringVarP(&opts.method, "request", "X", http.MethodGet, "request method")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "extra header as 'Name: value' (repeatable)")
	flags.StringVarP(&opts.data, "data", "d", "", "request body; @file reads it from a file")
	flags.BoolVarP(&opts.include, "include", "i", false, "print response headers")
	flags.BoolVar(&opts.showBody, "body", false, "print the response body")
	flags.BoolVar(&opts.summary, "summary", false, "print the assembled interceptor chain")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "export traces and metrics to this OTLP/HTTP host:port")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(out, serviceName, version.Get())
		},
	})
	return cmd
}

func run(ctx context.Context, out io.Writer, target string, opts probeOptions) error {
	loadOpts := []config.LoaderOption{config.WithEnvPrefix("FETCHPROBE")}
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(opts.envFile))
	}
	cfg, err := config.Load(serviceName, loadOpts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}
	setDefaultUserAgent(cfg)
	if opts.otlpEndpoint != "" {
		cfg.Telemetry.Endpoint = opts.otlpEndpoint
		cfg.Interceptors.Tracing = true
		cfg.Interceptors.Metrics = true
	}

	f, err := bootstrap.NewFetcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = f.Shutdown(context.WithoutCancel(ctx)) }()

	if opts.summary {
		f.Summary.Write(out)
	}

	reqOpts, err := requestOptions(opts)
	if err != nil {
		return err
	}
	resp, err := f.Fetch(ctx, target, reqOpts...)
	if resp != nil {
		if werr := report(out, resp, opts); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
		}
		return err
	}
	return nil
}

func requestOptions(opts probeOptions) ([]fetch.RequestOption, error) {
	reqOpts := []fetch.RequestOption{fetch.WithMethod(strings.ToUpper(opts.method))}
	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		reqOpts = append(reqOpts, fetch.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	if opts.data != "" {
		if path, ok := strings.CutPrefix(opts.data, "@"); ok {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			reqOpts = append(reqOpts, fetch.WithBody(b))
		} else {
			reqOpts = append(reqOpts, fetch.WithBody(opts.data))
		}
	}
	return reqOpts, nil
}

// setDefaultUserAgent adds a User-Agent default unless the config carries
// one. Config map keys arrive lowercased.
func setDefaultUserAgent(cfg *config.Config) {
	for k := range cfg.Interceptors.Headers {
		if strings.EqualFold(k, "User-Agent") {
			return
		}
	}
	if cfg.Interceptors.Headers == nil {
		cfg.Interceptors.Headers = map[string]string{}
	}
	cfg.Interceptors.Headers["User-Agent"] = version.UserAgent(serviceName)
}

// report prints the status line, optionally headers and body, and the body size.
func report(out io.Writer, resp *http.Response, opts probeOptions) error {
	defer resp.Body.Close()

	fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
	if opts.include {
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			for _, v := range resp.Header[k] {
				fmt.Fprintf(out, "%s: %s\n", k, v)
			}
		}
	}

	var body io.Writer = io.Discard
	if opts.showBody {
		fmt.Fprintln(out)
		body = out
	}
	n, err := io.Copy(body, resp.Body)
	if opts.showBody {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "body: %d bytes\n", n)
	return err
}
