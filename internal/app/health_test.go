package app

import (
	"net/http"
	"testing"
)

func TestHealthEndpointIsPublic(t *testing.T) {
	server, _ := newTestServer(newFakeStore())

	rr, payload := doJSON(t, server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	if payload["ok"] != true {
		t.Fatalf("health payload = %v", payload)
	}
}

func TestReadyReportsDependencyChecks(t *testing.T) {
	server, _ := newTestServer(newFakeStore())

	rr, payload := doJSON(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ready status = %d body=%s", rr.Code, rr.Body.String())
	}
	checks, _ := payload["checks"].(map[string]any)
	if checks["database"] == nil || checks["redis"] == nil {
		t.Fatalf("checks missing: %v", payload)
	}
}
