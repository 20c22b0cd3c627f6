package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Azzadd/fetchmeter"
	"github.com/Azzadd/fetchmeter/operations"
)

var headRevalidate bool

var headCmd = &cobra.Command{
	Use:   "head <location>",
	Short: "Show an artifact's metadata without downloading it",
	Long: `Head fetches only the metadata of the artifact at a location: its
size, content type, entity tag, digest, and modification time, as far as
the remote reports them.

Examples:
  fetchmeter head https://example.com/tools/tool-1.2.tgz
  fetchmeter head oci://ghcr.io/org/models:v4`,
	Args: cobra.ExactArgs(1),
	RunE: runHead,
}

func init() {
	headCmd.Flags().BoolVar(&headRevalidate, "revalidate", false, "Ask intermediate caches to revalidate cached copies")
	rootCmd.AddCommand(headCmd)
}

func runHead(_ *cobra.Command, args []string) error {
	location, err := fetchmeter.ParseLocation(args[0])
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

	if err := headOne(ctx, logger, runner, location); err != nil {
		closeTrace() //nolint:errcheck // already failing
		return err
	}
	return closeTrace()
}

func headOne(ctx context.Context, logger *slog.Logger, runner operations.Runner, location fetchmeter.Location) error {
	transport, closeTransport, err := newTransport(ctx, logger, location)
	if err != nil {
		return err
	}
	defer closeTransport() //nolint:errcheck // read-only resources

	fetcher, err := fetchmeter.Instrument(transport, fetchmeter.WithRunner(runner))
	if err != nil {
		return err
	}

	meta, err := fetcher.FetchMetadata(ctx, location, headRevalidate)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("%w: %s", fetchmeter.ErrNotFound, location)
	}

	printMetadata(meta)
	return nil
}

// printMetadata prints the known metadata fields, one per line. Fields the
// remote did not report are omitted.
func printMetadata(meta *fetchmeter.Metadata) {
	fmt.Printf("Location:      %s\n", meta.Location)
	if meta.ContentLength == fetchmeter.UnknownSize {
		fmt.Println("Size:          unknown")
	} else {
		fmt.Printf("Size:          %s (%d bytes)\n", byteCount(meta.ContentLength), meta.ContentLength)
	}
	if meta.ContentType != "" {
		fmt.Printf("Content-Type:  %s\n", meta.ContentType)
	}
	if meta.ETag != "" {
		fmt.Printf("ETag:          %s\n", meta.ETag)
	}
	if meta.Digest != "" {
		fmt.Printf("Digest:        %s\n", meta.Digest)
	}
	if !meta.LastModified.IsZero() {
		fmt.Printf("Last-Modified: %s (%s)\n", meta.LastModified.Format(time.RFC1123), humanize.Time(meta.LastModified))
	}
}
