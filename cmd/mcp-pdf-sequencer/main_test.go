package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a3tai/mcp-pdf-sequencer/internal/config"
)

const testVersion = "1.2.3"

// syncBuffer is a bytes.Buffer safe for the server goroutines to log into.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	version = testVersion
	buildTime = "2024-06-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	expectedStrings := []string{
		"MCP PDF Sequencer",
		"Version: " + testVersion,
		"Build Time: 2024-06-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{name: "info level drops debug", level: "info", wantDebug: false},
		{name: "debug level keeps debug", level: "debug", wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Config{Mode: config.ModeStdio, LogLevel: tt.level}
			log := newLogger(cfg, &buf)

			log.Debug().Msg("debug line")
			log.Info().Msg("info line")

			output := buf.String()
			if !strings.Contains(output, "info line") {
				t.Errorf("expected info line in %q", output)
			}
			if got := strings.Contains(output, "debug line"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(output, `"mode":"stdio"`) {
				t.Errorf("expected mode field in %q", output)
			}
		})
	}
}

func TestRun_ServerModeStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.Port = 0
	cfg.PDFDirectory = t.TempDir()
	cfg.OutputDirectory = t.TempDir()

	var buf syncBuffer
	log := newLogger(cfg, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, log) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	if !strings.Contains(buf.String(), "serving") {
		t.Errorf("expected startup log, got %q", buf.String())
	}
}

func TestRun_InvalidDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = ""

	var buf bytes.Buffer
	if err := run(context.Background(), cfg, newLogger(cfg, &buf)); err == nil {
		t.Fatal("expected error for empty PDF directory")
	}
}
