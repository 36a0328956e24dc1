package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/model"
)

const maxRecordBytes = 16 << 20

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl>",
	Short: "Load scraped records into the raw index",
	Long: `Ingest reads one scraped record per line (JSON Lines) and upserts it
into the raw index. Use "-" to read from stdin.

Each record needs at least meta.id, the subject's external identifier.

Example:
  dossier ingest records.jsonl --index sqlite
  scraper | dossier ingest -`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&indexName, "index", "", "index backend (typesense, sqlite)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := currentConfig()
	applyOverrides(cfg)

	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	n, err := ingestRecords(ctx, backend, in)
	fmt.Fprintf(os.Stderr, "✓ Ingested %d records into %s\n", n, cfg.Index.Backend)
	return err
}

// rawSink is the part of an index backend ingest writes to
type rawSink interface {
	PutRaw(ctx context.Context, record model.SourceRecord) error
}

// ingestRecords upserts every JSON line of r. It stops at the first bad
// line and reports how many records were written before it.
func ingestRecords(ctx context.Context, dst rawSink, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxRecordBytes)

	count := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record model.SourceRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if record.Meta.ID == "" {
			return count, fmt.Errorf("line %d: meta.id is required", lineNo)
		}

		if err := dst.PutRaw(ctx, record); err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read input: %w", err)
	}
	return count, nil
}
