package events

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(EventAppointmentStatusChanged, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventAppointmentStatusChanged, StatusChangePayload{
		AppointmentID: "a1",
		From:          "PENDING",
		To:            "CONFIRMED",
	})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded StatusChangePayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.AppointmentID != "a1" || decoded.To != "CONFIRMED" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	var order []int

	bus.Subscribe("event", func(_ *Event) error { order = append(order, 1); return nil })
	bus.Subscribe("event", func(_ *Event) error { order = append(order, 2); return nil })

	bus.Publish(&Event{Type: "event"})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected handlers in subscription order, got %v", order)
	}
}

func TestEventBusHandlerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	var secondCalled bool
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	bus.Publish(&Event{Type: "event"})

	if !secondCalled {
		t.Errorf("a failing handler must not stop the others")
	}
	if !bytes.Contains(buf.Bytes(), []byte("boom")) {
		t.Errorf("expected handler error in log, got %s", buf.String())
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}
