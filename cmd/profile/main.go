//go:build profiling
// +build profiling

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/felixge/fgprof"
	"github.com/grafana/pyroscope-go"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/Azzadd/fetchmeter"
	"github.com/Azzadd/fetchmeter/operations"
	"github.com/Azzadd/fetchmeter/progress"
	"github.com/Azzadd/fetchmeter/transport/httpfetch"
	"github.com/Azzadd/fetchmeter/transport/ocifetch"
)

type profileKind string

const (
	profileCPU   profileKind = "cpu"
	profileFG    profileKind = "fgprof"
	profileTrace profileKind = "trace"
	profileNone  profileKind = "none"
)

const (
	modeContent  = "content"
	modeMetadata = "metadata"
	modeBoth     = "both"
)

func main() {
	var (
		rawURL       = flag.String("url", "", "location to fetch (http, https, oci, file, mem)")
		mode         = flag.String("mode", "content", "mode: content, metadata, or both")
		profile      = flag.String("profile", "cpu", "profile type: cpu, fgprof, trace, none")
		outDir       = flag.String("out", "profiles", "output directory for profiles")
		label        = flag.String("label", "", "label suffix for profile files")
		repeat       = flag.Int("repeat", 1, "number of iterations")
		insecure     = flag.Bool("insecure", false, "use plain HTTP (for local registries)")
		logLevel     = flag.String("log-level", "", "log level: debug, info, warn, error")
		progressMode = flag.String("progress", "discard", "progress sink: discard, console, log")
		opTrace      = flag.String("op-trace", "", "write an operation trace to this file")
		timeout      = flag.Duration("timeout", 15*time.Minute, "overall timeout")
		pyroAddr     = flag.String("pyroscope", "", "Pyroscope server URL (enables streaming, disables local profiles)")
	)
	flag.Parse()

	if *rawURL == "" {
		log.Fatalf("url is required")
	}
	location, err := fetchmeter.ParseLocation(*rawURL)
	if err != nil {
		log.Fatalf("parse url: %v", err)
	}

	modeValue := strings.ToLower(*mode)
	if modeValue != modeContent && modeValue != modeMetadata && modeValue != modeBoth {
		log.Fatalf("invalid mode %q (expected %s, %s, or %s)", *mode, modeContent, modeMetadata, modeBoth)
	}

	profileKindValue := profileKind(strings.ToLower(*profile))
	if !isValidProfile(profileKindValue) {
		log.Fatalf("invalid profile %q (expected cpu, fgprof, trace, none)", *profile)
	}
	if *repeat < 1 {
		log.Fatalf("repeat must be >= 1")
	}

	runID := time.Now().UTC().Format("20060102T150405Z")

	// When Pyroscope is enabled, stream profiles instead of writing locally
	var pyroProfiler *pyroscope.Profiler
	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "fetchmeter-profile",
			ServerAddress:   *pyroAddr,
			// Grafana Cloud requires BasicAuth (AuthToken is deprecated)
			// User: instance ID from Grafana Cloud, Password: API token
			BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
			BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
			// Use a short upload rate since profiling runs are brief (~10s)
			UploadRate: 5 * time.Second,
			Logger:     pyroscope.StandardLogger,
			Tags: map[string]string{
				"mode":    modeValue,
				"git_sha": os.Getenv("GITHUB_SHA"),
				"git_ref": os.Getenv("GITHUB_REF_NAME"),
				"run_id":  runID,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("start pyroscope: %v", err)
		}
		pyroProfiler = profiler
		log.Printf("streaming profiles to %s", *pyroAddr)
	}

	if *pyroAddr == "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create profile output dir: %v", err)
		}
	}

	labelParts := []string{modeValue}
	if *label != "" {
		labelParts = append(labelParts, sanitizeLabel(*label))
	}
	labelParts = append(labelParts, runID)
	labelValue := strings.Join(labelParts, "_")

	// Only start local profiling when not streaming to Pyroscope
	var stopProfile func() error
	if *pyroAddr == "" {
		var err error
		stopProfile, err = startProfile(profileKindValue, *outDir, labelValue)
		if err != nil {
			log.Fatalf("start profile: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := slog.New(slog.DiscardHandler)
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			log.Fatalf("parse log level: %v", err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	transport, closeTransport, err := newTransport(ctx, logger, location, *insecure)
	if err != nil {
		log.Fatalf("create transport: %v", err)
	}
	defer closeTransport()

	runnerOpts := []operations.Option{operations.WithLogger(logger)}
	if *opTrace != "" {
		tw, err := operations.NewTraceWriter(*opTrace)
		if err != nil {
			log.Fatalf("create operation trace: %v", err)
		}
		defer func() {
			if err := tw.Close(); err != nil {
				log.Printf("close operation trace: %v", err)
			}
		}()
		runnerOpts = append(runnerOpts, operations.WithListener(tw))
	}
	runner, err := operations.NewRunner(runnerOpts...)
	if err != nil {
		log.Fatalf("create runner: %v", err)
	}

	fetcher, err := fetchmeter.Instrument(transport,
		fetchmeter.WithRunner(runner),
		fetchmeter.WithProgress(progressFactory(*progressMode, logger)),
	)
	if err != nil {
		log.Fatalf("instrument: %v", err)
	}

	for i := range *repeat {
		if *repeat > 1 {
			log.Printf("iteration %d/%d", i+1, *repeat)
		}
		if modeValue == modeContent || modeValue == modeBoth {
			start := time.Now()
			n, found, err := fetchmeter.FetchContent(ctx, fetcher, location, false,
				func(content io.Reader, _ *fetchmeter.Metadata) (int64, error) {
					return io.Copy(io.Discard, content)
				})
			if err != nil {
				log.Fatalf("fetch content: %v", err)
			}
			if !found {
				log.Fatalf("fetch content: %s does not exist", location)
			}
			log.Printf("content fetch complete: %d bytes in %s", n, time.Since(start))
		}

		if modeValue == modeMetadata || modeValue == modeBoth {
			start := time.Now()
			meta, err := fetcher.FetchMetadata(ctx, location, false)
			if err != nil {
				log.Fatalf("fetch metadata: %v", err)
			}
			if meta == nil {
				log.Fatalf("fetch metadata: %s does not exist", location)
			}
			log.Printf("metadata fetch complete: size=%d in %s", meta.ContentLength, time.Since(start))
		}
	}

	// Stop profiling - either Pyroscope or local
	if pyroProfiler != nil {
		if err := pyroProfiler.Stop(); err != nil {
			log.Fatalf("stop pyroscope: %v", err)
		}
		log.Printf("pyroscope profiling stopped")
	} else {
		if stopErr := stopProfile(); stopErr != nil {
			log.Fatalf("stop profile: %v", stopErr)
		}
		if err := writeHeapProfile(*outDir, labelValue); err != nil {
			log.Fatalf("write heap profile: %v", err)
		}
		if err := writeAllocsProfile(*outDir, labelValue); err != nil {
			log.Fatalf("write allocs profile: %v", err)
		}
	}
}

// newTransport selects the transport by the location's scheme.
func newTransport(ctx context.Context, logger *slog.Logger, location fetchmeter.Location, insecure bool) (fetchmeter.Fetcher, func() error, error) {
	noop := func() error { return nil }

	switch location.Scheme() {
	case "http", "https":
		f, err := fetchmeter.NewHTTPFetcher(httpfetch.WithLogger(logger))
		return f, noop, err
	case "oci":
		return fetchmeter.NewRegistryFetcher(
			ocifetch.WithPlainHTTP(insecure),
			ocifetch.WithLogger(logger),
		), noop, nil
	default:
		u := *location.URL()
		u.Path = ""
		if location.Scheme() == "file" {
			u.Path = "/"
		}
		bucket, err := blob.OpenBucket(ctx, u.String())
		if err != nil {
			return nil, nil, err
		}
		f, err := fetchmeter.NewBlobFetcher(bucket)
		if err != nil {
			_ = bucket.Close()
			return nil, nil, err
		}
		return f, bucket.Close, nil
	}
}

// progressFactory selects the progress sink the instrumented fetcher
// reports to, so the reporting paths show up in profiles when wanted.
func progressFactory(mode string, logger *slog.Logger) progress.Factory {
	switch strings.ToLower(mode) {
	case "console":
		return progress.NewConsoleFactory(os.Stderr)
	case "log":
		return progress.NewLogFactory(logger)
	default:
		return progress.Discard
	}
}

func isValidProfile(kind profileKind) bool {
	switch kind {
	case profileCPU, profileFG, profileTrace, profileNone:
		return true
	default:
		return false
	}
}

func startProfile(kind profileKind, outDir, label string) (func() error, error) {
	switch kind {
	case profileCPU:
		path := filepath.Join(outDir, "cpu_"+label+".pprof")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			pprof.StopCPUProfile()
			return f.Close()
		}, nil
	case profileFG:
		path := filepath.Join(outDir, "fgprof_"+label+".pprof")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		return func() error {
			stopErr := stop()
			closeErr := f.Close()
			return errors.Join(stopErr, closeErr)
		}, nil
	case profileTrace:
		path := filepath.Join(outDir, "trace_"+label+".out")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			trace.Stop()
			return f.Close()
		}, nil
	case profileNone:
		return func() error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown profile type: %s", kind)
	}
}

func writeHeapProfile(outDir, label string) error {
	path := filepath.Join(outDir, "heap_"+label+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func writeAllocsProfile(outDir, label string) error {
	path := filepath.Join(outDir, "allocs_"+label+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.Lookup("allocs").WriteTo(f, 0)
}

func sanitizeLabel(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func parseLogLevel(value string) (slog.Leveler, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unknown level %q", value)
	}
}
