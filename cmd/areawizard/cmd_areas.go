package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var areasJSON bool

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Inspect and manage the area registry",
}

var areasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and dynamic areas",
	Args:  cobra.NoArgs,
	RunE:  runAreasList,
}

var areasCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a dynamic area",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAreasCreate,
}

var areasShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an area with its attachment stats and recorded data",
	Args:  cobra.ExactArgs(1),
	RunE:  runAreasShow,
}

func init() {
	areasListCmd.Flags().BoolVar(&areasJSON, "json", false, "print JSON instead of a table")
}

func runAreasList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	overviews := a.wizard.AreaOverviews(cmd.Context())
	if areasJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(overviews)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tATTACHMENTS")
	for _, o := range overviews {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", o.ID, o.Name, o.Kind, o.Attachments.Count)
	}
	return tw.Flush()
}

func runAreasCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.wizard.CreateArea(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), created.ID)
	return nil
}

func runAreasShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	overview, err := a.wizard.AreaOverview(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(overview)
}
