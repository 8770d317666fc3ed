package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

type recordingSink struct {
	name  string
	mu    sync.Mutex
	got   []notify.Notification
	err   error
	block chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(ctx context.Context, n notify.Notification) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.got))
	for i, n := range s.got {
		out[i] = n.Type
	}
	return out
}

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type fakePublisher struct {
	channel string
	payload []byte
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload = message.([]byte)
	return redis.NewIntResult(1, nil)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Dispatcher", func() {
	var created events.Event

	BeforeEach(func() {
		created = events.NewComplaintCreatedEvent(7, "CMP-2026-000007", "Pothole on Main Road", "Roads & Footpaths", "High", 1, time.Now())
	})

	It("delivers every lifecycle event to every sink", func() {
		first := &recordingSink{name: "first"}
		second := &recordingSink{name: "second"}
		d := notify.NewDispatcher(notify.Config{MaxWorkers: 2}, []notify.Sink{first, second}, discard)
		defer d.Shutdown()

		bus := events.NewEventBus(discard)
		d.Subscribe(bus)

		Expect(bus.Publish(context.Background(), created)).To(Succeed())
		Expect(bus.Publish(context.Background(), events.NewComplaintStatusChangedEvent(7, "CMP-2026-000007", "Submitted", "Resolved", 3, 1, time.Now()))).To(Succeed())

		Eventually(first.Types).Should(ConsistOf(events.EventTypeComplaintCreated, events.EventTypeComplaintStatusChanged))
		Eventually(second.Types).Should(HaveLen(2))
	})

	It("keeps delivering to other sinks when one fails", func() {
		broken := &recordingSink{name: "broken", err: errors.New("boom")}
		healthy := &recordingSink{name: "healthy"}
		d := notify.NewDispatcher(notify.Config{MaxWorkers: 1}, []notify.Sink{broken, healthy}, discard)
		defer d.Shutdown()

		Expect(d.Enqueue(notify.FromEvent(created))).To(BeTrue())
		Eventually(healthy.Types).Should(HaveLen(1))
	})

	It("drops notifications when the queue is full", func() {
		slow := &recordingSink{name: "slow", block: make(chan struct{})}
		d := notify.NewDispatcher(notify.Config{MaxWorkers: 1, QueueSize: 1}, []notify.Sink{slow}, discard)
		defer d.Shutdown()
		defer close(slow.block)

		n := notify.FromEvent(created)
		accepted := 0
		for i := 0; i < 10; i++ {
			if d.Enqueue(n) {
				accepted++
			}
		}
		Expect(accepted).To(BeNumerically("<", 10))
	})

	It("refuses work after shutdown", func() {
		d := notify.NewDispatcher(notify.Config{}, nil, discard)
		d.Shutdown()
		Expect(d.Enqueue(notify.FromEvent(created))).To(BeFalse())
	})
})

var _ = Describe("Sinks", func() {
	var n notify.Notification

	BeforeEach(func() {
		n = notify.FromEvent(events.NewComplaintCreatedEvent(7, "CMP-2026-000007", "Pothole on Main Road", "Roads & Footpaths", "High", 1, time.Now()))
	})

	It("posts JSON to the webhook", func() {
		received := make(chan notify.Notification, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Header.Get("X-Event-Type")).To(Equal(events.EventTypeComplaintCreated))
			var got notify.Notification
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			received <- got
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		Expect(notify.NewWebhookSink(srv.URL, nil).Send(context.Background(), n)).To(Succeed())

		var got notify.Notification
		Eventually(received).Should(Receive(&got))
		Expect(got.ID).To(Equal(n.ID))
		Expect(got.Data).To(HaveKeyWithValue("public_id", "CMP-2026-000007"))
	})

	It("reports webhook failures", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := notify.NewWebhookSink(srv.URL, nil).Send(context.Background(), n)
		Expect(err).To(MatchError(ContainSubstring("502")))
	})

	It("sends a readable telegram message to the admin chat", func() {
		sender := &fakeSender{}
		Expect(notify.NewTelegramSinkWithSender(sender, 42).Send(context.Background(), n)).To(Succeed())

		Expect(sender.sent).To(HaveLen(1))
		Expect(sender.sent[0].ChatID).To(Equal(int64(42)))
		Expect(sender.sent[0].Text).To(Equal("New complaint CMP-2026-000007: Pothole on Main Road (Roads & Footpaths, High priority)"))
	})

	It("publishes JSON on the redis channel", func() {
		pub := &fakePublisher{}
		Expect(notify.NewRedisSink(pub, "complaints.events").Send(context.Background(), n)).To(Succeed())

		Expect(pub.channel).To(Equal("complaints.events"))
		var got notify.Notification
		Expect(json.Unmarshal(pub.payload, &got)).To(Succeed())
		Expect(got.Type).To(Equal(events.EventTypeComplaintCreated))
	})
})
