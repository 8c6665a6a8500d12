// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Stdout
	Stdout = &buf
	t.Cleanup(func() { Stdout = prev })
	return &buf
}

func TestResolve(t *testing.T) {
	var out OutputOptions
	cmd := &cobra.Command{Use: "x"}
	out.AddOutputFlags(cmd, OutputTable)

	if err := out.Resolve(); err != nil || !out.Is(OutputTable) {
		t.Fatalf("default: %v %s", err, out.Format())
	}
	if err := cmd.Flags().Set("output", "YAML"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := out.Resolve(); err != nil || !out.Is(OutputYAML) {
		t.Fatalf("yaml: %v %s", err, out.Format())
	}
	_ = cmd.Flags().Set("output", "xml")
	if err := out.Resolve(); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestStructured(t *testing.T) {
	buf := capture(t)
	var out OutputOptions
	out.AddOutputFlags(&cobra.Command{Use: "x"}, OutputYAML)
	if err := out.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	v := struct {
		Title string `json:"title"`
	}{"Essay"}
	done, err := out.Structured(v)
	if err != nil || !done {
		t.Fatalf("Structured: %v %v", done, err)
	}
	if strings.TrimSpace(buf.String()) != "title: Essay" {
		t.Fatalf("unexpected yaml %q", buf.String())
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("ID", "Title")
	table.AddRow("1", "Essay")
	table.AddRow("22")
	table.RenderTo(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[2], "1   Essay") {
		t.Fatalf("columns not aligned: %q", lines[2])
	}
}
