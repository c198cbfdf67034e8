package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := mgr.Get()
	cfg.MaxLoops = 5
	cfg.StateDir = filepath.Join(dir, "state")

	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := mgr.Get().MaxLoops; got != 5 {
		t.Fatalf("expected max_loops 5, got %d", got)
	}
}

func TestManagerRejectsInvalidConfig(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := mgr.Get()
	cfg.MaxLoops = 0
	if err := mgr.Update(cfg); err == nil {
		t.Fatal("expected validation error for max_loops=0")
	}

	cfg = mgr.Get()
	cfg.RequiredFields = nil
	if err := mgr.Update(cfg); err == nil {
		t.Fatal("expected validation error for empty required_fields")
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		reloaded <- cfg
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.MaxLoops = 7
	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.MaxLoops != 7 {
			t.Fatalf("expected reloaded max_loops 7, got %d", got.MaxLoops)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire on config change")
	}
}
