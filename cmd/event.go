package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/notify"
	"github.com/frahmantamala/civic-complaints/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage events: publish test lifecycle events through the event bus and the configured notification sinks`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging. With --notify it is also delivered to every configured sink.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var (
	eventData   string
	eventNotify bool
)

func publishTestEvent(eventType string) {
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)
	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var dispatcher *notify.Dispatcher
	if eventNotify {
		cfg := mustLoadConfig()
		rdb, err := initRedis(context.Background(), cfg.Redis)
		if err != nil {
			lg.Error("failed to connect to redis", "error", err)
			return
		}
		if rdb != nil {
			defer rdb.Close()
		}
		sinks, err := buildSinks(cfg.Notification, rdb, true)
		if err != nil {
			lg.Error("failed to build notification sinks", "error", err)
			return
		}
		dispatcher = notify.NewDispatcher(notify.Config{MaxWorkers: 1, Timeout: cfg.Notification.Timeout}, sinks, lg)
		eventBus.Subscribe(eventType, dispatcher.Handle)
	}

	testEvent := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message":   eventData,
			"source":    "cli-command",
			"public_id": fmt.Sprintf("CMP-%d-000000", time.Now().Year()),
		},
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	if err := eventBus.Publish(context.Background(), testEvent); err != nil {
		lg.Error("failed to publish event", "error", err)
		return
	}
	eventBus.Wait()

	if dispatcher != nil {
		// give the single worker time to deliver before shutting down
		time.Sleep(time.Second)
		dispatcher.Shutdown()
	}
	lg.Info("test event published successfully")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	publishEventCmd.Flags().BoolVar(&eventNotify, "notify", false, "Also deliver the event to the configured notification sinks")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
