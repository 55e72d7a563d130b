package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/thushan/tabkeeper/internal/adapter/persistence"
)

var (
	exportOut string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the saved tab dictionary as json",
		RunE:  runExport,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	dict, err := store.GetTabs(cmd.Context())
	if err != nil {
		return err
	}
	raw, err := persistence.EncodeTabs(dict, true)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(exportOut, raw, 0o600); err != nil {
		return err
	}
	styledLogger.InfoWithCount("Tabs exported", len(dict), "file", exportOut)
	return nil
}
