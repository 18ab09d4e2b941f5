package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReply(t *testing.T) {
	var got replyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("authorization = %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("test-token")
	c.ReplyURL = srv.URL

	if err := c.Reply(context.Background(), "rt-123", "สวัสดีค่ะ"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ReplyToken != "rt-123" {
		t.Errorf("replyToken = %q, want %q", got.ReplyToken, "rt-123")
	}
	if len(got.Messages) != 1 || got.Messages[0].Type != "text" || got.Messages[0].Text != "สวัสดีค่ะ" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestReplyNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("test-token")
	c.ReplyURL = srv.URL

	if err := c.Reply(context.Background(), "expired", "x"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/msg-42/content" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("authorization = %q", auth)
		}
		w.Write([]byte{0x00, 0x01, 0x02})
	}))
	defer srv.Close()

	c := NewClient("test-token")
	c.ContentURL = srv.URL + "/%s/content"

	data, err := c.Content(context.Background(), "msg-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 3 || data[2] != 0x02 {
		t.Errorf("content = %v", data)
	}
}

func TestContentNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test-token")
	c.ContentURL = srv.URL + "/%s/content"

	if _, err := c.Content(context.Background(), "gone"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestWebhookDecoding(t *testing.T) {
	body := `{"events":[
		{"type":"message","replyToken":"rt1","message":{"id":"m1","type":"text","text":"สั่ง ข้าว 3"}},
		{"type":"message","replyToken":"rt2","message":{"id":"m2","type":"audio"}},
		{"type":"follow","replyToken":"rt3"}
	]}`

	var wh Webhook
	if err := json.Unmarshal([]byte(body), &wh); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(wh.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(wh.Events))
	}
	if wh.Events[0].Message.Text != "สั่ง ข้าว 3" {
		t.Errorf("text = %q", wh.Events[0].Message.Text)
	}
	if wh.Events[1].Message.Type != MessageTypeAudio {
		t.Errorf("type = %q, want audio", wh.Events[1].Message.Type)
	}
	if wh.Events[2].Type == EventTypeMessage {
		t.Error("follow event misclassified as message")
	}
}
