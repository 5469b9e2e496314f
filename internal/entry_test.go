package internal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/planner/internal/models"
)

func TestWithCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	h := withCORS(ok, CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/goals", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}

	plain := withCORS(ok, CORSConfig{})
	req = httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	plain.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("cors header without config: %q", got)
	}
}

func TestOpenServiceBackends(t *testing.T) {
	for _, backend := range []string{BackendFS, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := NewDefaultConfig()
			cfg.Data.Backend = backend
			cfg.Data.Path = filepath.Join(dir, "data")
			cfg.SQLite.Path = filepath.Join(dir, "planner.db")
			logger := NewLogger(cfg, &bytes.Buffer{})

			svc, fs, err := OpenService(cfg, logger)
			if err != nil {
				t.Fatal(err)
			}
			if (fs != nil) != (backend == BackendFS) {
				t.Errorf("file store returned = %v for %s", fs != nil, backend)
			}
			if _, err := svc.CreateTask(context.Background(), models.Task{Name: "Persisted"}); err != nil {
				t.Fatal(err)
			}
			if err := svc.Close(); err != nil {
				t.Fatal(err)
			}

			svc, _, err = OpenService(cfg, logger)
			if err != nil {
				t.Fatal(err)
			}
			defer svc.Close()
			tasks := svc.ListTasks(context.Background())
			if len(tasks) != 1 || tasks[0].Name != "Persisted" {
				t.Errorf("tasks after reopen = %+v", tasks)
			}
		})
	}
}

func TestOpenServiceSeedsSettings(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Data.Path = t.TempDir()
	cfg.AI.Model = "custom-model"

	svc, _, err := OpenService(cfg, NewLogger(cfg, &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()
	if got := svc.Settings(context.Background()).Model; got != "custom-model" {
		t.Errorf("model = %q", got)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	err := Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "config is required") {
		t.Errorf("err = %v", err)
	}
}
