package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAppSurvivesUnusableVault(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "vault")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	app, err := loadApp(&globalFlags{vaultPath: blocker})
	if err != nil {
		t.Fatalf("load app: %v", err)
	}
	ctx := context.Background()
	if _, err := app.TrackingCLI.Events(ctx, app.Today(), ""); err != nil {
		t.Fatalf("events from the memory store: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPlanDumpAndShow(t *testing.T) {
	vault := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		out := &bytes.Buffer{}
		root := newRootCmd()
		root.SetOut(out)
		root.SetArgs(append([]string{"--vault", vault}, args...))
		if err := root.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out.String()
	}

	run("plan", "dump", "Write report :: for Friday", "Call bank")
	shown := run("plan", "show")
	for _, want := range []string{"write-report", "Write report (for Friday)", "call-bank"} {
		if !strings.Contains(shown, want) {
			t.Fatalf("plan show missing %q:\n%s", want, shown)
		}
	}
}
