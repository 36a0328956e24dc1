package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/api"
	"github.com/ppiankov/dossier/internal/queue"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	listenAddr string
	noWorker   bool
	workers    int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and an embedded worker",
	Long: `Serve accepts dossier requests over HTTP and queues them:

  POST /generate_politician/  {"name": "...", "wikidataid": "Q..."}
  GET  /health/

Unless --no-worker is given, the same process also consumes the queue.
With the memory queue backend this is the only way tasks get processed.

Example:
  dossier serve
  dossier serve --addr :9000 --workers 8
  DOSSIER_QUEUE_BACKEND=memory DOSSIER_INDEX_BACKEND=sqlite dossier serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "only accept requests; run workers separately")
	serveCmd.Flags().IntVar(&workers, "workers", 0, "concurrent tasks for the embedded worker (default from config)")
	addOverrideFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := currentConfig()
	applyOverrides(cfg)
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}
	if workers > 0 {
		cfg.Worker.Concurrency = workers
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer func() { _ = q.Close() }()

	var consumer *worker.Consumer
	if !noWorker {
		svc, err := newServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()
		consumer = worker.NewConsumer(q, svc.pipeline, worker.ConsumerConfigFromModel(cfg.Worker, cfg.Retry))
	} else {
		log.Info().Msg("embedded worker disabled")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		serverErr error
	)

	server := api.NewServer(q, cfg.Server)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// a failed listener takes the worker down with it
		defer cancel()
		serverErr = server.ListenAndServe(ctx)
	}()

	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = consumer.Run(ctx)
		}()
	}

	wg.Wait()

	if consumer != nil {
		processed, failed := consumer.Stats()
		fmt.Fprintf(os.Stderr, "\nProcessed: %d  Failed: %d\n", processed, failed)
	}
	return serverErr
}
