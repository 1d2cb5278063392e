package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"certwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSender records received events and optionally fails every send.
type fakeSender struct {
	name   string
	fail   bool
	events []domain.Event
}

func (f *fakeSender) Channel() string {
	return f.name
}

func (f *fakeSender) Send(_ context.Context, event domain.Event) error {
	if f.fail {
		return errors.New("boom")
	}
	f.events = append(f.events, event)
	return nil
}

func TestDispatchIsolatesFailedChannel(t *testing.T) {
	t.Parallel()

	failing := &fakeSender{name: "slack", fail: true}
	healthy := &fakeSender{name: "discord"}
	dispatcher := NewDispatcher(time.Second, testLogger())

	event := domain.Event{Severity: domain.SeverityWarning, Message: "cert expiring"}
	dispatcher.Dispatch(context.Background(), []Sender{failing, nil, healthy}, event)

	if len(healthy.events) != 1 {
		t.Fatalf("expected healthy channel to receive the event, got %d", len(healthy.events))
	}
	if healthy.events[0].Message != "cert expiring" {
		t.Fatalf("unexpected event message %q", healthy.events[0].Message)
	}
}

func TestSlackSenderPostsAttachmentWithSeverityColor(t *testing.T) {
	t.Parallel()

	var got struct {
		Attachments []struct {
			Text  string  `json:"text"`
			Color string  `json:"color"`
			TS    float64 `json:"ts"`
		} `json:"attachments"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSlackSender(server.URL)
	event := domain.Event{Severity: domain.SeverityCritical, Message: "*shop* expires soon"}
	if err := sender.Send(context.Background(), event); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(got.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(got.Attachments))
	}
	if got.Attachments[0].Text != event.Message {
		t.Fatalf("unexpected attachment text %q", got.Attachments[0].Text)
	}
	if got.Attachments[0].Color != "#e01e5a" {
		t.Fatalf("expected critical color #e01e5a, got %q", got.Attachments[0].Color)
	}
	if got.Attachments[0].TS <= 0 {
		t.Fatalf("expected positive timestamp, got %v", got.Attachments[0].TS)
	}
}

func TestDiscordSenderPostsEmbedWithSeverityColor(t *testing.T) {
	t.Parallel()

	var got struct {
		Embeds []struct {
			Description string `json:"description"`
			Color       int    `json:"color"`
			Timestamp   string `json:"timestamp"`
		} `json:"embeds"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewDiscordSender(server.URL)
	event := domain.Event{Severity: domain.SeverityWarning, Message: "renew soon"}
	if err := sender.Send(context.Background(), event); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(got.Embeds))
	}
	if got.Embeds[0].Description != "renew soon" {
		t.Fatalf("unexpected embed description %q", got.Embeds[0].Description)
	}
	if got.Embeds[0].Color != 16766720 {
		t.Fatalf("expected warning color 16766720, got %d", got.Embeds[0].Color)
	}
	if _, err := time.Parse(time.RFC3339, got.Embeds[0].Timestamp); err != nil {
		t.Fatalf("expected RFC3339 embed timestamp, got %q: %v", got.Embeds[0].Timestamp, err)
	}
}

func TestWebhookSenderPostsFlatPayload(t *testing.T) {
	t.Parallel()

	var got struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL)
	event := domain.Event{Severity: domain.SeverityInfo, Message: "certificate renewed"}
	if err := sender.Send(context.Background(), event); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if got.Severity != "info" || got.Message != "certificate renewed" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendReportsNon2xxStatusWithBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid token"))
	}))
	defer server.Close()

	sender := NewSlackSender(server.URL)
	err := sender.Send(context.Background(), domain.Event{Severity: domain.SeverityInfo, Message: "x"})
	if err == nil {
		t.Fatalf("expected error for forbidden response")
	}
	if !strings.Contains(err.Error(), "status=403") || !strings.Contains(err.Error(), "invalid token") {
		t.Fatalf("expected status and body in error, got %q", err.Error())
	}
}
