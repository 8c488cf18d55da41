package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, envVar := range OverrideVars {
		t.Setenv(envVar, "")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	clearOverrides(t)
	t.Setenv("NEWSDESK_TEST_VALUE", "")

	path := filepath.Join(t.TempDir(), "custom.env")
	if err := os.WriteFile(path, []byte("NEWSDESK_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(flags, "", "")
	if err := flags.Parse([]string{"--env", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != path {
		t.Fatalf("expected %s to be loaded, got %q", path, loaded)
	}
	if got := os.Getenv("NEWSDESK_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected variable from file, got %q", got)
	}
}

func TestLoadMissingDefaultIsOptional(t *testing.T) {
	clearOverrides(t)

	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(flags, filepath.Join(t.TempDir(), "absent.env"), "")
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("expected missing default env file to be tolerated, got %v", err)
	}
	if loaded != "" {
		t.Fatalf("expected nothing loaded, got %q", loaded)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	clearOverrides(t)

	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(flags, filepath.Join(t.TempDir(), "absent.env"), "")
	if err := flags.Parse([]string{"--env", filepath.Join(t.TempDir(), "other", "missing.env")}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected missing explicit env file to fail")
	}
}

func TestLoadOverrideVarWins(t *testing.T) {
	clearOverrides(t)
	t.Setenv("NEWSDESK_TEST_VALUE", "")

	path := filepath.Join(t.TempDir(), "override.env")
	if err := os.WriteFile(path, []byte("NEWSDESK_TEST_VALUE=override\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("NEWSDESK_ENV_FILE", path)

	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(flags, "", "")
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil || loaded != path {
		t.Fatalf("expected override file %s, got %q (%v)", path, loaded, err)
	}
	if got := os.Getenv("NEWSDESK_TEST_VALUE"); got != "override" {
		t.Fatalf("expected override value, got %q", got)
	}
}
