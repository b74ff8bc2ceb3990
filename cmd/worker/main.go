package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wardenhq/warden/internal/discord"
	"github.com/wardenhq/warden/internal/redis"
	"github.com/wardenhq/warden/internal/setup"
	"github.com/wardenhq/warden/internal/setup/config"
	"github.com/wardenhq/warden/internal/worker/core"
	"github.com/wardenhq/warden/internal/worker/sweep"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// SweepWorker lifts temporary moderation actions that have expired.
	SweepWorker = "sweep"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start a warden worker",
		Commands: []*cli.Command{
			{
				Name:  SweepWorker,
				Usage: "Start the expiration sweep worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					runSweepWorker(ctx)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show the status of all reporting workers",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runStatus(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runSweepWorker starts the sweep worker and blocks until shutdown.
func runSweepWorker(ctx context.Context) {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := setup.InitializeApp(ctx, WorkerLogDir, SweepWorker+"_worker")
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(ctx)

	workerLogger := app.LogManager.GetWorkerLogger(SweepWorker + "_worker")
	platform := discord.NewActions(app.Config.Discord.Token, workerLogger)
	w := sweep.New(app, app.DB.Service().Case(), platform, workerLogger)

	runWorker(ctx, w, workerLogger)
	log.Println("Worker has finished. Exiting.")
}

// runStatus prints every worker heartbeat currently in Redis.
func runStatus(ctx context.Context) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager := redis.NewManager(&cfg.Redis, zap.NewNop())
	defer manager.Close()

	client, err := manager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	statuses, err := core.NewMonitor(client, zap.NewNop()).GetAllStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load worker statuses: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println("No workers reporting.")
		return nil
	}

	for _, status := range statuses {
		state := "healthy"

		switch {
		case status.IsStale():
			state = "stale"
		case !status.IsHealthy:
			state = "unhealthy"
		}

		fmt.Printf("%s/%s  %-9s  %3d%%  %s (last seen %s ago)\n",
			status.WorkerType, status.WorkerID, state, status.Progress,
			status.CurrentTask, time.Since(status.LastSeen).Round(time.Second))
	}

	return nil
}

// runWorker runs a single worker in a loop with error recovery.
func runWorker(ctx context.Context, w interface{ Start(context.Context) }, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping worker")
			return
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Worker execution failed",
							zap.String("worker_type", fmt.Sprintf("%T", w)),
							zap.Any("panic", r),
						)
						logger.Info("Restarting worker in 5 seconds...")
						time.Sleep(5 * time.Second)
					}
				}()

				logger.Info("Starting worker")
				w.Start(ctx)
			}()
		}
	}
}
