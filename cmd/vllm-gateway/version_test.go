package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version = "0.2.0-test"
	GitCommit = "abc123"

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	for _, want := range []string{"vllm-gateway 0.2.0-test", "Git Commit: abc123", runtime.Version()} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionInfo(t *testing.T) {
	info := versionInfo()
	if info.Version != Version || info.Commit != GitCommit || info.BuildTime != BuildDate {
		t.Errorf("versionInfo() = %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
}

func TestRootCommandTree(t *testing.T) {
	want := map[string]bool{"run": false, "version": false, "validate": false, "requests": false, "queue": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}
}
