package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}

	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	expectedDir := filepath.Join(realTmpDir, defaultLogDirName)
	if realGot != expectedDir {
		t.Fatalf("unexpected log dir: got=%s expected=%s", realGot, expectedDir)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(filepath.Dir(got)); err != nil {
		t.Fatalf("expected log dir to be created: %v", err)
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Options{
		Dir:      tmpDir,
		Filename: "release.log",
	}
	log := New("release", cfg)
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
	if !strings.Contains(string(content), `"service":"`+serviceName+`"`) {
		t.Fatalf("expected service field, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Options{
		Dir:      tmpDir,
		Filename: "debug.log",
	}
	log := New("debug", cfg)
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestFromContextCarriesRequestID(t *testing.T) {
	tmpDir := t.TempDir()
	prev := L
	t.Cleanup(func() { L = prev })
	L = New("release", Options{Dir: tmpDir, Filename: "ctx.log"})

	ctx := ContextWithRequestID(context.Background(), " req-42 ")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("unexpected request id: %q", got)
	}
	FromContext(ctx).Infow("withdrawal_transition", "withdrawal_id", 7)
	_ = L.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "ctx.log"))
	if err != nil {
		t.Fatalf("read ctx log failed: %v", err)
	}
	if !strings.Contains(string(content), `"request_id":"req-42"`) {
		t.Fatalf("expected request_id field, got=%s", string(content))
	}
	if !strings.Contains(string(content), `"withdrawal_id":7`) {
		t.Fatalf("expected withdrawal_id field, got=%s", string(content))
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}
