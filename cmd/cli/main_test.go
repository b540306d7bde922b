package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "version": "test"})
	})
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["text"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "query text must not be empty"})
			return
		}
		sessionID := req["session_id"]
		if sessionID == "" {
			sessionID = "session-generated"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": sessionID,
			"query_id":   "query-1",
			"state":      "completed",
			"answer":     "It is sunny.",
		})
	})
	mux.HandleFunc("/api/v1/sessions/s1/turns", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": "s1",
			"turns":      []map[string]string{{"query": "hello"}},
			"total":      1,
		})
	})
	mux.HandleFunc("/api/v1/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "purged", "session_id": "s1"})
	})
	mux.HandleFunc("/api/v1/capabilities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"capabilities": []map[string]string{{"name": "weather"}},
			"total":        1,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPostQuery(t *testing.T) {
	srv := newFakeAPI(t)
	t.Setenv("COAGENT_API_URL", srv.URL)

	out, err := postQuery("s1", "weather in tokyo")
	if err != nil {
		t.Fatalf("postQuery: %v", err)
	}
	if out["answer"] != "It is sunny." {
		t.Errorf("answer = %v", out["answer"])
	}
	if out["session_id"] != "s1" {
		t.Errorf("session_id = %v", out["session_id"])
	}
}

func TestPostQuery_EmptyText(t *testing.T) {
	srv := newFakeAPI(t)
	t.Setenv("COAGENT_API_URL", srv.URL)

	if _, err := postQuery("s1", ""); err == nil {
		t.Error("empty text should surface the API error")
	}
}

func TestGetTurnsAndPurge(t *testing.T) {
	srv := newFakeAPI(t)
	t.Setenv("COAGENT_API_URL", srv.URL)

	turns, err := getTurns("s1", "10")
	if err != nil {
		t.Fatalf("getTurns: %v", err)
	}
	if turns["total"] != float64(1) {
		t.Errorf("total = %v", turns["total"])
	}

	out, err := purgeSession("s1")
	if err != nil {
		t.Fatalf("purgeSession: %v", err)
	}
	if out["status"] != "purged" {
		t.Errorf("status = %v", out["status"])
	}
}

func TestListCapabilities(t *testing.T) {
	srv := newFakeAPI(t)
	t.Setenv("COAGENT_API_URL", srv.URL)

	out, err := listCapabilities()
	if err != nil {
		t.Fatalf("listCapabilities: %v", err)
	}
	if out["total"] != float64(1) {
		t.Errorf("total = %v", out["total"])
	}
}

func TestHealth(t *testing.T) {
	srv := newFakeAPI(t)
	t.Setenv("COAGENT_API_URL", srv.URL)

	out, err := getHealth()
	if err != nil {
		t.Fatalf("getHealth: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %v", out["status"])
	}
}
