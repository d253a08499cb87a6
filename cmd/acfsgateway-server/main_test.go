package main

import (
	"os"
	"testing"
)

func TestLoadConfigPortFlagOverride(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	flagPort = 9999
	defer func() { flagPort = 0 }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected port override 9999, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigManifestFlagOverride(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	flagManifest = "/tmp/other.manifest.yaml"
	defer func() { flagManifest = "" }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Registry.ManifestPath != "/tmp/other.manifest.yaml" {
		t.Fatalf("expected manifest override, got %q", cfg.Registry.ManifestPath)
	}
}
