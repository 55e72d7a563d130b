package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/thushan/tabkeeper/internal/adapter/tabs"
	"github.com/thushan/tabkeeper/internal/core/domain"
)

var (
	presetArgs map[string]string

	presetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "List the tab presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadPresets()
			if err != nil {
				return err
			}
			return renderPresets(cmd.OutOrStdout(), registry)
		},
	}

	presetsShowCmd = &cobra.Command{
		Use:   "show NAME",
		Short: "Print the tab a preset expands to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadPresets()
			if err != nil {
				return err
			}
			return showPreset(cmd.OutOrStdout(), registry, args[0], presetArgs)
		},
	}
)

func init() {
	presetsShowCmd.Flags().StringToStringVar(&presetArgs, "arg", nil, "preset argument, as name=value")
	presetsCmd.AddCommand(presetsShowCmd)
}

func loadPresets() (*tabs.Presets, error) {
	registry := tabs.NewPresets()
	if cfg.Presets.File == "" {
		return registry, nil
	}
	n, err := registry.LoadFile(cfg.Presets.File)
	if err != nil {
		return nil, err
	}
	styledLogger.Debug("Loaded presets", "count", n, "file", cfg.Presets.File)
	return registry, nil
}

func renderPresets(out io.Writer, registry *tabs.Presets) error {
	data := pterm.TableData{{"Name", "Description", "Args"}}
	for _, p := range registry.List() {
		data = append(data, []string{p.Name, p.Description, strings.Join(p.Args, ", ")})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, table)
	return err
}

func showPreset(out io.Writer, registry *tabs.Presets, name string, args map[string]string) error {
	settings, err := registry.Expand(name, tabs.PresetArgs(args))
	if err != nil {
		return err
	}
	spec := domain.TabSpec{
		Title:           settings.Title,
		CombinationMode: settings.CombinationMode,
		SortOverride:    settings.SortOverride,
		Filters:         settings.Filters,
		CategoryMask:    settings.CategoryMask,
		AutoHide:        settings.AutoHide,
	}
	raw, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}
