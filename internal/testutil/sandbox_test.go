package testutil

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSandboxReadWrite(t *testing.T) {
	sb, err := NewSandbox("read-write")
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if !strings.Contains(sb.Root, "read-write") {
		t.Fatalf("expected sandbox root to carry its label, got %s", sb.Root)
	}

	data := []byte("hello world")
	if err := sb.WriteFile("file.txt", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := sb.ReadFile("file.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("data mismatch: got %q want %q", got, data)
	}
}

func TestSandboxWriteConfigFile(t *testing.T) {
	sb, err := NewSandbox("config-file")
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := sb.WriteConfigFile("", "server:\n  listen_addr: \"0.0.0.0:1\"\n"); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}
	got, err := sb.ReadFile("config/default.yaml")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Contains(got, []byte("0.0.0.0:1")) {
		t.Fatalf("unexpected config contents: %s", got)
	}

	if err := sb.WriteConfigFile("staging", "server:\n  listen_addr: \"0.0.0.0:2\"\n"); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}
	if _, err := sb.ReadFile("config/staging.yaml"); err != nil {
		t.Fatalf("expected config/staging.yaml to exist: %v", err)
	}
}

func TestSandboxCleanup(t *testing.T) {
	sb, err := NewSandbox("cleanup")
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	path := sb.Path("temp")
	if err := sb.WriteFile("temp", []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := sb.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected sandbox to be removed")
	}
}
