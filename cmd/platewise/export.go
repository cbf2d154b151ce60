package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperengineering/platewise/internal/types"
	"github.com/spf13/cobra"
)

var (
	exportFormat   string
	exportPassword string
	exportOutDir   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the diary report to a file",
	Long: "Writes the password-protected HTML report (default) or a CSV file. " +
		"The password may also be given through PLATEWISE_EXPORT_PASSWORD.",
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "html", "Report format: html or csv")
	exportCmd.Flags().StringVar(&exportPassword, "password", "", "Password protecting the HTML report")
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", ".", "Directory to write the report into")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openCLIApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	password := exportPassword
	if password == "" {
		password = os.Getenv("PLATEWISE_EXPORT_PASSWORD")
	}

	export, err := a.diary.Export(cmd.Context(), types.ExportRequest{Format: exportFormat, Password: password})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := os.MkdirAll(exportOutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(exportOutDir, export.Filename)
	if err := os.WriteFile(path, export.Body, 0600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}
