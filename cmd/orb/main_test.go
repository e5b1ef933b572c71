package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/orb/testutil"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"ORB_API_KEY", "ORB_BASE_URL", "ORB_VALIDATE_RESPONSES", "ORB_VALIDATE_PARAMS", "ORB_TIMEOUT", "ORB_LOGGING_LEVEL", "ORB_LOGGING_FORMAT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Version(t *testing.T) {
	setupEnv(t)
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != Version() {
		t.Errorf("expected %q, got %q", Version(), out)
	}
}

func TestRun_Ping(t *testing.T) {
	setupEnv(t)
	s := testutil.NewServer(t)
	s.JSON(http.MethodGet, "/ping", http.StatusOK, `{"response":"Orb says hello"}`)

	out, _, err := runCLI(t, "--base-url", s.BaseURL(), "--api-key", "cli-key", "ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Orb says hello\n" {
		t.Errorf("expected greeting, got %q", out)
	}
	testutil.AssertHeader(t, s.LastRequest(t), "Authorization", "Bearer cli-key")
}

func TestRun_CustomersGet(t *testing.T) {
	setupEnv(t)
	s := testutil.NewServer(t)
	s.JSON(http.MethodGet, "/customers/external_customer_id/{id}", http.StatusOK, `{"id":"cus_1","external_customer_id":"acme","name":"Acme"}`)

	out, _, err := runCLI(t, "--base-url", s.BaseURL(), "customers", "get", "--external", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON output, got %q", out)
	}
	if got["id"] != "cus_1" || got["name"] != "Acme" {
		t.Errorf("unexpected customer: %v", got)
	}
	if !strings.Contains(out, "\n  \"id\"") {
		t.Errorf("expected indented output, got %q", out)
	}
}

func TestRun_CustomersListAll(t *testing.T) {
	setupEnv(t)
	s := testutil.NewServer(t)
	s.Handle(http.MethodGet, "/customers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			w.Write([]byte(`{"data":[{"id":"cus_1"}],"pagination_metadata":{"has_more":true,"next_cursor":"c2"}}`))
			return
		}
		w.Write([]byte(`{"data":[{"id":"cus_2"}],"pagination_metadata":{"has_more":false,"next_cursor":null}}`))
	})

	out, _, err := runCLI(t, "--base-url", s.BaseURL(), "customers", "list", "--all", "--limit", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON array, got %q", out)
	}
	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]string{"cus_1", "cus_2"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	reqs := s.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	testutil.AssertQuery(t, reqs[1], "cursor", "c2")
	testutil.AssertQuery(t, reqs[1], "limit", "1")
}

func TestRun_InvoicesListFilters(t *testing.T) {
	setupEnv(t)
	s := testutil.NewServer(t)
	s.JSON(http.MethodGet, "/invoices", http.StatusOK, `{"data":[],"pagination_metadata":{"has_more":false,"next_cursor":null}}`)

	_, _, err := runCLI(t, "--base-url", s.BaseURL(), "invoices", "list", "--customer-id", "cus_1", "--status", "issued", "--status", "paid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := s.LastRequest(t)
	testutil.AssertQuery(t, req, "customer_id", "cus_1")
	if diff := cmp.Diff([]string{"issued", "paid"}, req.Query["status[]"]); diff != "" {
		t.Errorf("status[] mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := runCLI(t, "--base-url", s.BaseURL(), "invoices", "list", "--status", "refunded"); err == nil {
		t.Error("expected error for unknown status, got nil")
	}

	t.Setenv("ORB_VALIDATE_PARAMS", "false")
	if _, _, err := runCLI(t, "--base-url", s.BaseURL(), "invoices", "list", "--status", "refunded"); err != nil {
		t.Fatalf("expected the filter to reach the server, got %v", err)
	}
	if diff := cmp.Diff([]string{"refunded"}, s.LastRequest(t).Query["status[]"]); diff != "" {
		t.Errorf("status[] mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_APIError(t *testing.T) {
	setupEnv(t)
	s := testutil.NewServer(t)
	s.JSON(http.MethodGet, "/invoices/{id}", http.StatusNotFound, `{"status":404,"title":"Not found"}`)

	_, _, err := runCLI(t, "--base-url", s.BaseURL(), "invoices", "get", "inv_missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status in error, got %q", err.Error())
	}
}

func TestRun_Config(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "orb.yaml")

	out, _, err := runCLI(t, "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("expected path in output, got %q", out)
	}

	if _, _, err := runCLI(t, "--config", path, "config", "init"); err == nil {
		t.Error("expected error on second init, got nil")
	}

	t.Setenv("ORB_API_KEY", "sk_test_abcdef")
	out, _, err = runCLI(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "sk_test_abcdef") {
		t.Errorf("expected API key to be masked, got %q", out)
	}
	if !strings.Contains(out, "cdef") || !strings.Contains(out, "base_url: https://api.withorb.com/v1/") {
		t.Errorf("unexpected config output: %q", out)
	}
}

func TestRun_ConfigInitReplacesBrokenFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "orb.yaml")
	if err := os.WriteFile(path, []byte("logging: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, "--config", path, "ping"); err == nil {
		t.Error("expected error loading broken config, got nil")
	}
	if _, _, err := runCLI(t, "--config", path, "config", "init", "--force"); err != nil {
		t.Errorf("expected init --force to succeed, got %v", err)
	}
}

func TestRun_Debug(t *testing.T) {
	setupEnv(t)
	s := testutil.NewServer(t)
	s.JSON(http.MethodGet, "/ping", http.StatusOK, `{"response":"ok"}`)

	_, stderr, err := runCLI(t, "--base-url", s.BaseURL(), "--debug", "ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "request completed") {
		t.Errorf("expected request log on stderr, got %q", stderr)
	}
}
