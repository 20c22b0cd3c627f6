// Package cli implements the fetchmeter command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/Azzadd/fetchmeter"
	"github.com/Azzadd/fetchmeter/cmd/fetchmeter/cli/config"
	"github.com/Azzadd/fetchmeter/operations"
	"github.com/Azzadd/fetchmeter/transport/httpfetch"
	"github.com/Azzadd/fetchmeter/transport/ocifetch"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	insecure bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "fetchmeter",
	Short: "Download remote artifacts with progress and tracing",
	Long: `Fetchmeter downloads artifacts from HTTP servers, OCI registries, and
cloud blob storage. Every fetch runs as a named operation with progress
reporting, and operations can be traced to a file for later inspection.

Supported location schemes: http, https, oci, s3, gs, azblob, file, mem.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Allow plain-HTTP registry connections")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().String("progress", "auto", "Progress display mode: auto, tty, or plain")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort the command after this duration (0 disables)")
	rootCmd.PersistentFlags().String("trace", "", "Write an operation trace to this file (.zst compresses)")
	rootCmd.PersistentFlags().String("user-agent", "", "Override the User-Agent sent to remotes")
	rootCmd.Version = version

	for _, key := range []string{"progress", "timeout", "trace", "user-agent"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	cobra.OnInitialize(initConfig)
}

// initConfig loads the config file and environment overrides. A missing
// config file is fine; any other read error is reported once on stderr
// rather than failing the command.
func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if dir, err := config.Dir(); err == nil {
		viper.AddConfigPath(dir)
	}

	viper.SetEnvPrefix("FETCHMETER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config file: %v\n", err)
		}
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// newLogger returns the command logger: debug text on stderr when verbose,
// otherwise silent.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newRunner builds the operation runner shared by every fetch in a command
// invocation, with a trace listener attached when --trace is set. The
// returned closer flushes the trace file and must be called before exit.
func newRunner(logger *slog.Logger) (operations.Runner, func() error, error) {
	opts := []operations.Option{operations.WithLogger(logger)}

	closer := func() error { return nil }
	if path := viper.GetString("trace"); path != "" {
		tw, err := operations.NewTraceWriter(path)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, operations.WithListener(tw))
		closer = tw.Close
	}

	runner, err := operations.NewRunner(opts...)
	if err != nil {
		closer() //nolint:errcheck // already failing
		return nil, nil, err
	}
	return runner, closer, nil
}

// newTransport selects the transport for a location by scheme. The returned
// closer releases transport resources (the blob bucket, if one was opened).
func newTransport(ctx context.Context, logger *slog.Logger, location fetchmeter.Location) (fetchmeter.Fetcher, func() error, error) {
	noop := func() error { return nil }

	switch location.Scheme() {
	case "http", "https":
		f, err := fetchmeter.NewHTTPFetcher(
			httpfetch.WithLogger(logger),
			httpfetch.WithUserAgent(viper.GetString("user-agent")),
		)
		return f, noop, err

	case "oci":
		opts := []ocifetch.Option{
			ocifetch.WithPlainHTTP(insecure),
			ocifetch.WithLogger(logger),
		}
		if ua := viper.GetString("user-agent"); ua != "" {
			opts = append(opts, ocifetch.WithUserAgent(ua))
		}
		if store, err := ocifetch.DefaultCredentialStore(); err == nil {
			opts = append(opts, ocifetch.WithCredentialStore(store))
		} else {
			logger.Debug("no credential store", "error", err)
		}
		return fetchmeter.NewRegistryFetcher(opts...), noop, nil

	default:
		bucket, err := blob.OpenBucket(ctx, bucketURL(location))
		if err != nil {
			return nil, nil, fmt.Errorf("open bucket for %s: %w", location, err)
		}
		f, err := fetchmeter.NewBlobFetcher(bucket)
		if err != nil {
			bucket.Close() //nolint:errcheck // already failing
			return nil, nil, err
		}
		return f, bucket.Close, nil
	}
}

// bucketURL strips the object key from a location, leaving the bucket URL
// the Go CDK drivers expect. For file locations the bucket is the
// filesystem root, since the object key carries the full path.
func bucketURL(location fetchmeter.Location) string {
	u := location.URL()
	bu := *u
	bu.Path = ""
	bu.RawPath = ""
	if u.Scheme == "file" {
		bu.Path = "/"
	}
	return bu.String()
}

// commandContext returns the context for a command run: canceled on SIGINT
// or SIGTERM, with the configured timeout applied when one is set.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signalContext()

	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, timeout)
		return tctx, func() {
			tcancel()
			cancel()
		}
	}
	return ctx, cancel
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts fetchmeter errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, fetchmeter.ErrNotFound):
		return fmt.Sprintf("Error: not found: %v", err)
	case errors.Is(err, fetchmeter.ErrUnauthorized):
		return "Error: authentication failed (check your credentials)"
	case errors.Is(err, fetchmeter.ErrInvalidLocation):
		return fmt.Sprintf("Error: invalid location: %v", err)
	case errors.Is(err, fetchmeter.ErrUnsafePath):
		return fmt.Sprintf("Error: unsafe destination path: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Error: timed out after %s", viper.GetDuration("timeout"))
	case errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// elapsed formats a duration for summary lines.
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
