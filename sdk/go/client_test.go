package crewdesksdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEventsDecodeStoredPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"ts":"2024-01-01T00:00:00Z","type":"task.created","entity_kind":"task","entity_id":"t-1","actor_id":"u-1","payload_json":"{\"title\":\"Ship release\"}"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	events, err := c.Events(context.Background(), 10)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "task.created" {
		t.Fatalf("events = %+v", events)
	}
	payload, err := events[0].PayloadMap()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["title"] != "Ship release" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"not_found","message":"task not found"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetTask(context.Background(), "missing")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" || apiErr.Message != "task not found" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}
