package eventbus

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/logging"
)

type payload struct {
	data any
}

func TestPublisher_Publish_NoMatch(t *testing.T) {
	type other struct {
		data any
	}
	logBuffer := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&logBuffer)
	log.SetLevel(logrus.WarnLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *payload) {
		t.Error("should not be called")
	})
	publisher.Publish(&other{data: "test"})

	if output := logBuffer.String(); output == "" {
		t.Error("should have logged")
	} else if !strings.Contains(output, "eventbus.Publish: no matching subscribers") {
		t.Errorf("should have contained no matching subscribers but got: %q", output)
	}
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	called := false
	var data any
	publisher.Subscribe(func(e *payload) {
		called = true
		data = e.data
	})
	publisher.Publish(&payload{data: "test"})
	if !called {
		t.Error("should be called")
	}
	if data != "test" {
		t.Errorf("expected: %v, got: %v", "test", data)
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))
	handler := func(e *payload) {
		t.Error("should not be called after unsubscribe")
	}
	publisher.Subscribe(handler)
	publisher.Unsubscribe(handler)
	if publisher.SubscribersCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", publisher.SubscribersCount())
	}
}

func TestMatchSignature(t *testing.T) {
	type a struct{}
	type b struct{}
	if !MatchSignature(func(e *a) {}, []any{&a{}}) {
		t.Error("expected true")
	}
	if MatchSignature(func(e *a) {}, []any{&b{}}) {
		t.Error("expected false")
	}
	if MatchSignature(func(e *a) {}, []any{}) {
		t.Error("expected false")
	}
	if MatchSignature(func(e *a) {}, []any{&a{}, &a{}}) {
		t.Error("expected false")
	}
	if !MatchSignature(func(ctx context.Context) {}, []any{context.Background()}) {
		t.Error("expected true")
	}
}

func TestPublisher_PanicRecovery(t *testing.T) {
	logBuffer := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&logBuffer)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *payload) {
		panic("boom")
	})
	publisher.Publish(&payload{data: "test"})
	if !strings.Contains(logBuffer.String(), "panicked") {
		t.Error("expected panic to be logged")
	}
}
