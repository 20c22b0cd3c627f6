package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Azzadd/fetchmeter"
	"github.com/Azzadd/fetchmeter/internal/manifest"
	"github.com/Azzadd/fetchmeter/operations"
	"github.com/Azzadd/fetchmeter/progress"
)

var (
	fetchChecksum   string
	fetchManifest   string
	fetchRevalidate bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <location> [dest]",
	Short: "Download an artifact",
	Long: `Fetch downloads the artifact at a location to a local path.

The destination defaults to the location's last path segment in the
current directory. An existing directory as destination places the file
inside it; "-" writes the content to stdout. With --manifest, every item
in a YAML manifest is fetched instead of a single location.

Examples:
  fetchmeter fetch https://example.com/tools/tool-1.2.tgz
  fetchmeter fetch https://example.com/tools/tool-1.2.tgz ./dist/
  fetchmeter fetch oci://ghcr.io/org/models:v4 weights.bin
  fetchmeter fetch s3://bucket/data.bin --checksum sha256:9f86d081884c7d65...
  fetchmeter fetch --manifest artifacts.yaml`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchChecksum, "checksum", "", "Expected content digest, e.g. sha256:...")
	fetchCmd.Flags().StringVar(&fetchManifest, "manifest", "", "Fetch every item of this YAML manifest")
	fetchCmd.Flags().BoolVar(&fetchRevalidate, "revalidate", false, "Ask intermediate caches to revalidate cached copies")
	rootCmd.AddCommand(fetchCmd)
}

// fetchItem is one resolved download: where from, where to, and the
// expected digest, if any.
type fetchItem struct {
	location fetchmeter.Location
	dest     string
	checksum digest.Digest
}

func runFetch(_ *cobra.Command, args []string) error {
	items, err := fetchItems(args)
	if err != nil {
		return err
	}

	logger := newLogger()
	runner, closeTrace, err := newRunner(logger)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	factory := newProgressFactory()
	for _, item := range items {
		if err := fetchOne(ctx, logger, runner, factory, item); err != nil {
			closeTrace() //nolint:errcheck // already failing
			return err
		}
	}
	return closeTrace()
}

// fetchItems resolves the command arguments into the list of downloads:
// either the items of a manifest or the single location/dest pair.
func fetchItems(args []string) ([]fetchItem, error) {
	if fetchManifest != "" {
		if len(args) > 0 {
			return nil, errors.New("--manifest does not take location arguments")
		}
		return manifestItems(fetchManifest)
	}

	if len(args) == 0 {
		return nil, errors.New("requires a location argument (or --manifest)")
	}

	location, err := fetchmeter.ParseLocation(args[0])
	if err != nil {
		return nil, err
	}

	dest := location.ShortName()
	if len(args) == 2 {
		dest = args[1]
	}

	item := fetchItem{location: location, dest: dest}
	if fetchChecksum != "" {
		d, err := digest.Parse(fetchChecksum)
		if err != nil {
			return nil, fmt.Errorf("checksum: %w", err)
		}
		item.checksum = d
	}
	return []fetchItem{item}, nil
}

// manifestItems loads a manifest and resolves its items. Destinations are
// already validated against path escapes by the manifest loader.
func manifestItems(path string) ([]fetchItem, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	items := make([]fetchItem, 0, len(m.Items))
	for _, it := range m.Items {
		location, err := fetchmeter.ParseLocation(it.Location)
		if err != nil {
			return nil, err
		}
		item := fetchItem{location: location, dest: it.Destination()}
		if it.Checksum != "" {
			d, err := digest.Parse(it.Checksum)
			if err != nil {
				return nil, fmt.Errorf("checksum: %w", err)
			}
			item.checksum = d
		}
		items = append(items, item)
	}
	return items, nil
}

// fetchOne downloads a single item through an instrumented transport.
func fetchOne(ctx context.Context, logger *slog.Logger, runner operations.Runner, factory progress.Factory, item fetchItem) error {
	dest, err := resolveDest(item.dest, item.location)
	if err != nil {
		return err
	}

	transport, closeTransport, err := newTransport(ctx, logger, item.location)
	if err != nil {
		return err
	}
	defer closeTransport() //nolint:errcheck // read-only resources

	fetcher, err := fetchmeter.Instrument(transport,
		fetchmeter.WithRunner(runner),
		fetchmeter.WithProgress(factory),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	n, found, err := fetchmeter.FetchContent(ctx, fetcher, item.location, fetchRevalidate,
		func(content io.Reader, meta *fetchmeter.Metadata) (int64, error) {
			return writeContent(content, meta, dest, item.checksum)
		})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", fetchmeter.ErrNotFound, item.location)
	}

	if dest != "-" {
		fmt.Printf("Fetched %s (%s) in %s\n", dest, byteCount(n), elapsed(start))
	}
	return nil
}

// resolveDest finalizes the destination path. An existing directory gets
// the location's short name appended (like cp); parent directories are
// created as needed.
func resolveDest(dest string, location fetchmeter.Location) (string, error) {
	if dest == "-" {
		return dest, nil
	}
	if dest == "" {
		dest = location.ShortName()
	}

	if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
		dest = filepath.Join(dest, location.ShortName())
	}

	if dir := filepath.Dir(dest); dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			return "", mkdirErr
		}
	}
	return dest, nil
}

// writeContent streams content to dest, verifying the checksum when one
// was given. A failed or mismatched download does not leave a partial
// file behind.
func writeContent(content io.Reader, meta *fetchmeter.Metadata, dest string, checksum digest.Digest) (int64, error) {
	var file *os.File
	var out io.Writer = os.Stdout
	if dest != "-" {
		f, err := os.Create(dest) //nolint:gosec // G304: dest is user-provided CLI argument
		if err != nil {
			return 0, err
		}
		file = f
		out = f
	}

	var verifier digest.Verifier
	if checksum != "" {
		verifier = checksum.Verifier()
		out = io.MultiWriter(out, verifier)
	}

	var bar *progressbar.ProgressBar
	if shouldShowProgress() && dest != "-" {
		total := fetchmeter.UnknownSize
		if meta != nil {
			total = meta.ContentLength
		}
		bar = newProgressBar(total, "Downloading "+filepath.Base(dest))
		out = io.MultiWriter(out, bar)
	}

	n, err := io.Copy(out, content)
	if bar != nil {
		//nolint:errcheck // progress bar errors are not critical
		bar.Finish()
	}

	if err == nil && verifier != nil && !verifier.Verified() {
		err = fmt.Errorf("checksum mismatch: content does not match %s", checksum)
	}

	if file != nil {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(dest) //nolint:errcheck // best-effort cleanup of the partial file
		}
	}
	return n, err
}

// byteCount formats a byte count for humans. Negative counts mean the
// size is unknown.
func byteCount(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(n))
}
