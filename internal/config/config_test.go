package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected overridden port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected default host preserved, got %q", cfg.Server.Host)
	}
	if cfg.Refinement.MaxIterations != 5 {
		t.Fatalf("expected default max_iterations 5, got %d", cfg.Refinement.MaxIterations)
	}
	if cfg.Evaluation.AcceptThreshold != 0.85 {
		t.Fatalf("expected default accept_threshold 0.85, got %v", cfg.Evaluation.AcceptThreshold)
	}
}

func TestLoadParsesEvaluationFloors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "evaluation:\n  accept_threshold: 0.9\n  min_prosody: 0.8\n  min_rhyme: 0.7\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Evaluation.AcceptThreshold != 0.9 || cfg.Evaluation.MinProsody != 0.8 || cfg.Evaluation.MinRhyme != 0.7 {
		t.Fatalf("unexpected evaluation config: %+v", cfg.Evaluation)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server: [this is not a map\n")

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}

func TestLoadDefaultFallsBackWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("os.Chdir: %v", err)
	}
	defer os.Chdir(oldWd)

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected fallback defaults, got %+v", cfg)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config file: %v", err)
	}
}
