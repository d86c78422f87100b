package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if conf.StoreDriver != DriverMemory || conf.HTTPPort != "8092" || conf.HTTPShutdownTimeout != 4*time.Second {
		t.Errorf("unexpected defaults %+v", conf)
	}

	if conf.HTTPMaxBodyBytes != 1<<20 {
		t.Errorf("HTTPMaxBodyBytes = %d", conf.HTTPMaxBodyBytes)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()

	content := "STORE_DRIVER=Postgres\nPOSTGRES_DSN=postgres://localhost/arisync\nHTTP_PORT=9000\nLOCK_TTL=1m\n"
	if err := os.WriteFile(filepath.Join(dir, "config.env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SEED_DEMO_DATA", "true")

	conf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if conf.StoreDriver != DriverPostgres || conf.PostgresDSN != "postgres://localhost/arisync" {
		t.Errorf("file values not applied: %+v", conf)
	}

	if conf.HTTPPort != "9100" || !conf.SeedDemoData {
		t.Errorf("environment must win over the file: %+v", conf)
	}

	if conf.LockTTL != time.Minute {
		t.Errorf("LockTTL = %s, want 1m", conf.LockTTL)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	if _, err := Load(t.TempDir()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadRejectsDemoSeedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("SEED_DEMO_DATA", "true")

	if _, err := Load(t.TempDir()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}

	t.Setenv("SEED_DEMO_DATA", "false")

	conf, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if !conf.Production() {
		t.Errorf("Production() = false for APP_ENV=%s", conf.AppEnv)
	}
}
