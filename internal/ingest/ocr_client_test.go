package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseDocument_ExtractsMarkdownFromDocumentsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convert/source" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"documents":[{"md_content":"# Lab Report\nGlucose: 95 mg/dL"}]}`)
	}))
	defer srv.Close()

	c := NewOCRClient(srv.URL)
	text, err := c.ParseDocument(context.Background(), "report.pdf", []byte("fake-pdf-bytes"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if text != "# Lab Report\nGlucose: 95 mg/dL" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestParseDocument_FallsBackToTopLevelKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"markdown":"plain text body"}`)
	}))
	defer srv.Close()

	c := NewOCRClient(srv.URL)
	text, err := c.ParseDocument(context.Background(), "report.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if text != "plain text body" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestParseDocument_4xxDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"unsupported file type"}`)
	}))
	defer srv.Close()

	c := NewOCRClient(srv.URL)
	_, err := c.ParseDocument(context.Background(), "report.pdf", []byte("x"))
	if err == nil {
		t.Fatalf("expected an error for a 422 response")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call (no retry on 4xx), got %d", calls)
	}
}

func TestParseDocument_ReturnsErrorOnConnectionFailure(t *testing.T) {
	c := NewOCRClient("http://127.0.0.1:1")
	_, err := c.ParseDocument(context.Background(), "report.pdf", []byte("x"))
	if err == nil {
		t.Fatalf("expected an error against an unreachable sidecar")
	}
}

func TestHealthCheck_ReportsUnreachable(t *testing.T) {
	c := NewOCRClient("http://127.0.0.1:1")
	status := c.HealthCheck(context.Background())
	if status.Reachable {
		t.Fatalf("expected unreachable status")
	}
}
