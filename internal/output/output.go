// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// OutputFormat is a rendering mode selected with --output.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// Stdout is where rendered output goes.
var Stdout io.Writer = os.Stdout

// OutputOptions holds the --output flag of a command.
type OutputOptions struct {
	raw    string
	format OutputFormat
}

// AddOutputFlags registers --output (-o) on cmd with def as the default.
func (o *OutputOptions) AddOutputFlags(cmd *cobra.Command, def OutputFormat) {
	cmd.Flags().StringVarP(&o.raw, "output", "o", string(def), "Output format: table, json or yaml")
	o.format = def
}

// Resolve validates the flag value. Call it first in RunE.
func (o *OutputOptions) Resolve() error {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(o.raw)))
	switch f {
	case "":
		if o.format == "" {
			o.format = OutputTable
		}
		return nil
	case OutputTable, OutputJSON, OutputYAML:
		o.format = f
		return nil
	}
	return fmt.Errorf("unknown output format %q (choose table, json or yaml)", o.raw)
}

// Is reports whether the resolved format is f.
func (o *OutputOptions) Is(f OutputFormat) bool { return o.format == f }

// Format returns the resolved format.
func (o *OutputOptions) Format() OutputFormat { return o.format }

// Structured renders v as JSON or YAML according to the resolved format and
// reports whether it did. Table output is left to the caller.
func (o *OutputOptions) Structured(v any) (bool, error) {
	switch o.format {
	case OutputJSON:
		return true, JSON(v)
	case OutputYAML:
		return true, YAML(v)
	}
	return false, nil
}

// JSON writes v as indented JSON.
func JSON(v any) error {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML. Values are passed through JSON first so field names
// follow the json tags.
func YAML(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// Table is a column aligned text table.
type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row; missing cells are left blank.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table to Stdout.
func (t *Table) Render() {
	t.RenderTo(Stdout)
}

func (t *Table) RenderTo(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.headers, "\t"))
	seps := make([]string, len(t.headers))
	for i, h := range t.headers {
		seps[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t"))
	for _, row := range t.rows {
		cells := make([]string, len(t.headers))
		copy(cells, row)
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}
