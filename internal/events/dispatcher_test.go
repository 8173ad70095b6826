package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	calls := 0
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		calls++
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{
		ID:       "evt-1",
		Type:     EventTicketCreated,
		TicketID: "ticket-1",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if calls != 2 {
		t.Fatalf("want both handlers invoked, got %d calls", calls)
	}

	failed := logs.FilterMessage("event handler failed").All()
	if len(failed) != 1 {
		t.Fatalf("want one failure logged, got %d", len(failed))
	}
	fields := failed[0].ContextMap()
	if fields["event_type"] != string(EventTicketCreated) || fields["ticket_id"] != "ticket-1" {
		t.Errorf("failure log missing context: %v", fields)
	}
}

func TestPublishIgnoresUnsubscribedTypes(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	d.Subscribe(EventTicketDeleted, func(ctx context.Context, e Event) error {
		t.Fatal("handler for another type invoked")
		return nil
	})
	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
