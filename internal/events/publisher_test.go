package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func TestWatermillEventPublisher_Publish(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "exam-events")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publisher := NewWatermillEventPublisher(pubSub, "exam-events", logger)
	event := NewEvent(ResultSubmitted, ResultSubmittedEvent{ResultID: 3, ExamID: 1, StudentID: "s1", Score: 2, Grade: "A"})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if got := msg.Metadata.Get("event_type"); got != ResultSubmitted {
			t.Errorf("event_type metadata = %s, want %s", got, ResultSubmitted)
		}

		var decoded struct {
			ID     string               `json:"id"`
			Type   string               `json:"type"`
			Source string               `json:"source"`
			Data   ResultSubmittedEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if decoded.ID != event.ID || decoded.Source != EventSource {
			t.Errorf("decoded envelope = %+v", decoded)
		}
		if decoded.Data.ResultID != 3 || decoded.Data.StudentID != "s1" {
			t.Errorf("decoded data = %+v", decoded.Data)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	ctx := context.Background()

	if err := mock.Publish(ctx, NewEvent(ExamCreated, ExamEvent{ExamID: 1})); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	got := mock.GetPublishedEvents()
	if len(got) != 1 || got[0].Type != ExamCreated {
		t.Fatalf("GetPublishedEvents() = %+v", got)
	}
	if got[0].ID == "" || got[0].Timestamp.IsZero() || got[0].Version != EventVersion {
		t.Errorf("event envelope not stamped: %+v", got[0])
	}

	mock.ClearEvents()
	if len(mock.GetPublishedEvents()) != 0 {
		t.Error("ClearEvents() left events behind")
	}

	boom := errors.New("broker down")
	mock.FailWith(boom)
	if err := mock.Publish(ctx, NewEvent(ExamDeleted, nil)); !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want %v", err, boom)
	}
}

func TestNoopEventPublisher(t *testing.T) {
	var p EventPublisher = NewNoopEventPublisher()
	if err := p.Publish(context.Background(), NewEvent(ExamUpdated, nil)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
