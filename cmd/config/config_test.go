package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"musigd/internal/testutil"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Server.ListenAddr != "0.0.0.0:50051" {
		t.Fatalf("unexpected listen addr: %s", AppConfig.Server.ListenAddr)
	}
	if AppConfig.Logging.Level != "info" {
		t.Fatalf("unexpected log level: %s", AppConfig.Logging.Level)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("staging")
	if AppConfig.Server.ListenAddr != "0.0.0.0:60051" {
		t.Fatalf("expected overridden listen addr, got %s", AppConfig.Server.ListenAddr)
	}
	if AppConfig.Logging.Level != "debug" {
		t.Fatalf("expected overridden log level")
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	sb, err := testutil.NewSandbox("load-config")
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	yaml := "server:\n  listen_addr: \"0.0.0.0:1234\"\nmetrics:\n  enabled: false\n"
	if err := sb.WriteConfigFile("", yaml); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Server.ListenAddr != "0.0.0.0:1234" {
		t.Fatalf("expected listen addr 0.0.0.0:1234, got %s", AppConfig.Server.ListenAddr)
	}
	if AppConfig.Metrics.Enabled {
		t.Fatalf("expected metrics disabled in sandbox config")
	}
}
