package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "areawizard",
	Short: "Inspection form wizard for mining areas",
	Long: `areawizard serves the inspection form wizard (login, area, process,
description with attachments, result) and offers maintenance commands for
the area registry.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML or TOML config file (overrides CONFIG_FILE)")

	areasCmd.AddCommand(areasListCmd)
	areasCmd.AddCommand(areasCreateCmd)
	areasCmd.AddCommand(areasShowCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(areasCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
