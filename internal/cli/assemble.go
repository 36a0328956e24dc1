package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/logging"
	"github.com/ppiankov/dossier/internal/pipeline"
)

var (
	outJSON     string
	outMD       string
	outHTML     string
	persist     bool
	timeout     time.Duration
	llmProvider string
	llmModel    string
	indexName   string
)

// assembleCmd represents the assemble command
var assembleCmd = &cobra.Command{
	Use:   "assemble <name> <wikidataid>",
	Short: "Assemble one politician dossier",
	Long: `Assemble runs the full pipeline for a single subject:
- Gather every scraped record of the subject from the raw index
- Build the biography context and the structured facts
- Generate the narrative sections with the configured language model
- Validate the document and resolve its stable identity

Nothing is written to the clean index unless --persist is given.

Example:
  dossier assemble "Angela Merkel" Q567
  dossier assemble "Angela Merkel" Q567 --json merkel.json --md merkel.md
  dossier assemble "Angela Merkel" Q567 --persist --index sqlite`,
	Args: cobra.ExactArgs(2),
	RunE: runAssemble,
}

func init() {
	rootCmd.AddCommand(assembleCmd)

	assembleCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: print to stdout)")
	assembleCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	assembleCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (optional)")
	assembleCmd.Flags().BoolVar(&persist, "persist", false, "write the document to the clean index")
	assembleCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	addOverrideFlags(assembleCmd)
}

// addOverrideFlags registers the flags that override provider and index
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().StringVar(&indexName, "index", "", "index backend (typesense, sqlite)")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	name, externalID := args[0], args[1]

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	ctx = logging.ForTask(ctx, "cli", externalID)

	cfg := currentConfig()
	applyOverrides(cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Assembling: %s (%s)\n", name, externalID)
		fmt.Fprintf(os.Stderr, "Provider:   %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Index:      %s\n", cfg.Index.Backend)
		fmt.Fprintln(os.Stderr)
	}

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	outcome, err := svc.pipeline.Assemble(ctx, name, externalID)
	if err != nil {
		return fmt.Errorf("assemble failed: %w", err)
	}

	renderer := pipeline.NewRenderer()
	if outJSON == "" && outMD == "" && outHTML == "" {
		if err := renderer.JSON(os.Stdout, outcome.Document); err != nil {
			return err
		}
	} else if err := renderer.WriteFiles(outcome.Document, outJSON, outMD, outHTML); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	renderer.Summary(os.Stderr, outcome.Document, outcome.Violations)

	if !persist {
		return nil
	}

	res, err := svc.pipeline.Persist(ctx, outcome)
	if err != nil {
		return fmt.Errorf("persist failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\n✓ Indexed as %s (created: %v)\n", res.Key, res.Created)
	return nil
}
