package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/civic-complaints/internal/notify"
	"github.com/frahmantamala/civic-complaints/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that consume complaint lifecycle events published by the server.`,
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume lifecycle events from redis",
	Long:  `Subscribe to the notification redis channel, log every lifecycle event and optionally forward it to the webhook and telegram sinks.`,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

var (
	workerChannel string
	workerForward bool
	maxWorkers    int
	jobQueueSize  int
)

func startEventWorker() {
	cfg := mustLoadConfig()
	lg := logger.LoggerWrapper()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	if rdb == nil {
		fmt.Fprintln(os.Stderr, "redis.addr is required for the events worker")
		os.Exit(1)
	}
	defer rdb.Close()

	channel := getStringFlag(workerChannel, cfg.Notification.RedisChannel)
	if channel == "" {
		fmt.Fprintln(os.Stderr, "no channel: set notification.redis_channel or --channel")
		os.Exit(1)
	}

	var dispatcher *notify.Dispatcher
	if workerForward {
		sinks, err := buildSinks(cfg.Notification, rdb, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build notification sinks: %v\n", err)
			os.Exit(1)
		}
		dispatcher = notify.NewDispatcher(notify.Config{
			MaxWorkers: getIntFlag(maxWorkers, cfg.Notification.MaxWorkers),
			QueueSize:  getIntFlag(jobQueueSize, cfg.Notification.QueueSize),
			Timeout:    cfg.Notification.Timeout,
		}, sinks, lg)
		defer dispatcher.Shutdown()
	}

	lg.Info("events worker started", "channel", channel, "forward", workerForward)

	err = notify.Listen(ctx, rdb, channel, lg, func(n notify.Notification) {
		lg.Info("lifecycle event received",
			"event_id", n.ID,
			"event_type", n.Type,
			"occurred_at", n.OccurredAt,
			"message", n.Text())
		if dispatcher != nil {
			dispatcher.Enqueue(n)
		}
	})
	if err != nil {
		lg.Error("events worker stopped", "error", err)
		return
	}

	lg.Info("events worker shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	eventWorkerCmd.Flags().StringVar(&workerChannel, "channel", "", "Redis channel to subscribe to (overrides config)")
	eventWorkerCmd.Flags().BoolVar(&workerForward, "forward", false, "Forward events to the webhook and telegram sinks")
	eventWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of delivery workers (overrides config)")
	eventWorkerCmd.Flags().IntVar(&jobQueueSize, "queue-size", 0, "Delivery queue size (overrides config)")

	workerCmd.AddCommand(eventWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
