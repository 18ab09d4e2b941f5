package web

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/natthaphol/sangbot/pkg/line"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	events []line.Event
}

func (f *fakeDispatcher) HandleEvents(events []line.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

func (f *fakeDispatcher) all() []line.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]line.Event(nil), f.events...)
}

func TestWebhookAcknowledgesAndDispatches(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewServer(d)

	body := `{"events":[
		{"type":"message","replyToken":"rt1","message":{"id":"m1","type":"text","text":"สั่ง ข้าว 3"}},
		{"type":"message","replyToken":"rt2","message":{"id":"m2","type":"audio"}}
	]}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	events := d.all()
	if len(events) != 2 {
		t.Fatalf("dispatched events = %d, want 2", len(events))
	}
	if events[0].Message.Text != "สั่ง ข้าว 3" {
		t.Errorf("event text = %q", events[0].Message.Text)
	}
	if events[1].Message.Type != line.MessageTypeAudio {
		t.Errorf("event type = %q", events[1].Message.Type)
	}
}

func TestWebhookMalformedBodyStillAcknowledged(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewServer(d)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if len(d.all()) != 0 {
		t.Error("events dispatched from malformed body")
	}
}

func TestWebhookEmptyBatch(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewServer(d)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"events":[]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	s := NewServer(&fakeDispatcher{})

	resp, err := s.app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
