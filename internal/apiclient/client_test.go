package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/api"
	"clipforge/internal/apiclient"
	"clipforge/internal/entitlement"
)

func TestNewEmptyBind(t *testing.T) {
	client, err := apiclient.New("", apiclient.Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
	if _, err := client.Job(context.Background(), "x"); !apiclient.IsAPIUnavailable(err) {
		t.Fatalf("nil client should report unavailable, got %v", err)
	}
}

func TestSubmitSendsHeadersAndDecodes(t *testing.T) {
	var got api.SubmitRequest
	var auth, user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth, user = r.Header.Get("Authorization"), r.Header.Get("X-User-ID")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.SubmitResponse{JobID: "job-1", Status: "queued"})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL, apiclient.Options{Token: "tok", UserID: "alice"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := client.Submit(context.Background(), api.SubmitRequest{SourceKey: "talk.mp4", ClipLengths: []int{15, 30}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID != "job-1" || got.SourceKey != "talk.mp4" || len(got.ClipLengths) != 2 {
		t.Fatalf("unexpected exchange: resp=%+v req=%+v", resp, got)
	}
	if auth != "Bearer tok" || user != "alice" {
		t.Fatalf("unexpected headers auth=%q user=%q", auth, user)
	}
}

func TestRenderDenialDecodesDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error:    "render denied: quota_exhausted",
			Kind:     "render_denied",
			Decision: &entitlement.Decision{Plan: "free", Limit: 12, Used: 12, Reason: entitlement.ReasonQuotaExhausted},
		})
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL, apiclient.Options{})
	_, err := client.Render(context.Background(), "job-1", false)
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apiclient.Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Decision == nil || apiErr.Decision.Used != 12 {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestEventsStopsAtStreamEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i, status := range []string{"rendering_draft", "draft_ready", "done"} {
			fmt.Fprintf(w, "id: %d\nevent: status\ndata: {\"id\":\"job-1\",\"status\":%q}\n\n", i+1, status)
		}
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL, apiclient.Options{})
	var seen []string
	err := client.Events(context.Background(), "job-1", func(j api.Job) error {
		seen = append(seen, j.Status)
		return nil
	})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(seen) != 3 || seen[2] != "done" {
		t.Fatalf("unexpected statuses %v", seen)
	}
}

func TestIsAPIUnavailableOnRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client, _ := apiclient.New(addr, apiclient.Options{})
	_, err := client.Health(context.Background())
	if !apiclient.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
