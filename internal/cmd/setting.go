// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newSettingCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "setting",
		Aliases: []string{"settings", "config"},
		Short:   "Read and change stored preferences",
	}

	cmd.AddCommand(newSettingSetCmd(repo))
	cmd.AddCommand(newSettingGetCmd(repo))
	cmd.AddCommand(newSettingListCmd(repo))
	cmd.AddCommand(newSettingDeleteCmd(repo))

	return cmd
}

// settingValue interprets raw as JSON when it parses, as a string otherwise.
func settingValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func newSettingSetCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Long: `Store a preference. Values that parse as JSON are stored typed.

Examples:
  arc-organizer setting set theme dark
  arc-organizer setting set notifications.reminderHours 24
  arc-organizer setting set notifications.enabled true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.SetSetting(cmd.Context(), args[0], settingValue(args[1])); err != nil {
				return fmt.Errorf("set setting: %w", err)
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newSettingGetCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any
			ok, err := repo.Setting(cmd.Context(), args[0], &v)
			if err != nil {
				return fmt.Errorf("get setting: %w", err)
			}
			if !ok {
				return fmt.Errorf("setting %q is not set", args[0])
			}
			data, _ := json.Marshal(v)
			fmt.Println(string(data))
			return nil
		},
	}
}

func newSettingListCmd(repo *organizer.Repository) *cobra.Command {
	var out output.OutputOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			settings, err := repo.ListSettings(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

			if done, err := out.Structured(settings); done {
				return err
			}
			if len(settings) == 0 {
				fmt.Println("No settings stored.")
				return nil
			}
			table := output.NewTable("Key", "Value")
			for _, s := range settings {
				data, _ := json.Marshal(s.Value)
				table.AddRow(s.Key, truncate(string(data), 60))
			}
			table.Render()
			return nil
		},
	}

	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newSettingDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.DeleteSetting(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Setting %s removed\n", args[0])
			return nil
		},
	}
}
