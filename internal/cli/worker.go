package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/queue"
	"github.com/ppiankov/dossier/internal/worker"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued dossier tasks",
	Long: `Worker pulls tasks from the Redis queue and assembles each one.

External failures and undecodable model replies are retried with the
configured policy; malformed source records and schema violations fail
the task immediately.

Example:
  dossier worker
  dossier worker --workers 8 --llm-provider anthropic`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntVar(&workers, "workers", 0, "concurrent tasks (default from config)")
	addOverrideFlags(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := currentConfig()
	applyOverrides(cfg)
	if workers > 0 {
		cfg.Worker.Concurrency = workers
	}
	if cfg.Queue.Backend == queue.BackendMemory {
		return fmt.Errorf("the memory queue is process-local; use 'dossier serve' to consume it")
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer func() { _ = q.Close() }()

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	consumer := worker.NewConsumer(q, svc.pipeline, worker.ConsumerConfigFromModel(cfg.Worker, cfg.Retry))
	if err := consumer.Run(ctx); err != nil {
		return err
	}

	processed, failed := consumer.Stats()
	fmt.Fprintf(os.Stderr, "\nProcessed: %d  Failed: %d\n", processed, failed)
	return nil
}
