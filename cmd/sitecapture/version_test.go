package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	t.Parallel()

	if v := getVersion(); v == "" {
		t.Error("getVersion() returned empty string")
	}
}

func TestGetCommitAndDate(t *testing.T) {
	t.Parallel()

	if c := getCommit(); c == "" {
		t.Error("getCommit() returned empty string")
	}
	if d := getDate(); d == "" {
		t.Error("getDate() returned empty string")
	}
	if c := getCommit(); len(c) > 7 && c != commit {
		t.Errorf("expected a short commit hash, got %q", c)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"sitecapture version", "commit:", "built:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
