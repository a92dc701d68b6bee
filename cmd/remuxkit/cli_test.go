package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"remuxkit/internal/config"
	"remuxkit/internal/queue"
	"remuxkit/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	configPath := filepath.Join(homeDir, ".config", "remuxkit", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\noutput_dir = %q\nlog_dir = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func (e *cliTestEnv) openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open(e.cfg.Paths.LogDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func (e *cliTestEnv) writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, name)
	if err := os.WriteFile(path, []byte("iso"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestQueueAddAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	image := env.writeImage(t, "MOVIE.iso")

	out, _, err := runCLI(t, []string{"queue", "add", image}, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Enqueued #1")
	requireContains(t, out, image)

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "MOVIE")
	requireContains(t, out, "pending")
}

func TestQueueAddRejectsUnknownSource(t *testing.T) {
	env := setupCLITestEnv(t)
	bogus := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(bogus, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := runCLI(t, []string{"queue", "add", bogus}, env.configPath)
	if err == nil {
		t.Fatal("expected error for non-DVD source")
	}
}

func TestQueueSelect(t *testing.T) {
	env := setupCLITestEnv(t)
	image := env.writeImage(t, "MOVIE.iso")

	if _, _, err := runCLI(t, []string{"queue", "add", image}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}
	out, _, err := runCLI(t, []string{"queue", "select", "1", "2", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("queue select: %v", err)
	}
	requireContains(t, out, "titles 2,5")

	store := env.openStore(t)
	item, err := store.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("lookup item: %v", err)
	}
	if len(item.SelectedTitles) != 2 || item.SelectedTitles[0] != 2 || item.SelectedTitles[1] != 5 {
		t.Fatalf("unexpected selection: %v", item.SelectedTitles)
	}
}

func TestQueueSelectRejectsBadTitle(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "select", "1", "zero"}, env.configPath); err == nil {
		t.Fatal("expected error for non-numeric title")
	}
	if _, _, err := runCLI(t, []string{"queue", "select", "1", "0"}, env.configPath); err == nil {
		t.Fatal("expected error for title below one")
	}
}

func TestQueueClear(t *testing.T) {
	env := setupCLITestEnv(t)
	image := env.writeImage(t, "MOVIE.iso")

	if _, _, err := runCLI(t, []string{"queue", "add", image}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 0 items")

	store := env.openStore(t)
	if err := store.MarkFailed(context.Background(), 1, "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	store.Close()

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1 items")
}

func TestStatusReportsChecksAndQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "ffprobe")
	requireContains(t, out, "mkvmerge")
	requireContains(t, out, "Queue is empty")

	image := env.writeImage(t, "MOVIE.iso")
	if _, _, err := runCLI(t, []string{"queue", "add", image}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}
	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "pending")
}

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "staging_dir")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init overwrite: %v", err)
	}
}

func TestConfigShowRendersEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "staging_dir")
	requireContains(t, out, env.cfg.Paths.StagingDir)
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)
}
