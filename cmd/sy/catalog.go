package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/db"
	"github.com/zulandar/shiftyard/internal/store"
	"github.com/zulandar/shiftyard/internal/subtype"
)

var weekdayNames = [subtype.Weekdays]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Shift catalog commands",
	}

	cmd.AddCommand(newCatalogImportCmd())
	cmd.AddCommand(newCatalogShowCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a shift catalog from YAML",
		Long:  "Upserts the shift types of a catalog file and replaces the weekday slots of its shift group.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogImport(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	return cmd
}

func runCatalogImport(cmd *cobra.Command, configPath, file string) error {
	cat, err := config.LoadCatalog(file)
	if err != nil {
		return err
	}
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	n, err := db.SeedCatalog(gormDB, cat)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d shift types into group %s (%d weekday slots)\n",
		len(cat.ShiftTypes), cat.Group, n)
	return nil
}

func newCatalogShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show GROUP",
		Short: "Show the weekday catalog of a shift group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	return cmd
}

func runCatalogShow(cmd *cobra.Command, configPath, group string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	cat, err := store.LoadCatalog(gormDB, group)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cat.Len() == 0 {
		fmt.Fprintf(out, "No shift types in group %s.\n", group)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WEEKDAY\tGROUP\tSHIFTS")
	for wd := range subtype.Weekdays {
		for _, g := range []subtype.Group{subtype.GroupDay, subtype.GroupEvening, subtype.GroupNight} {
			entries := cat.Group(wd, g)
			if len(entries) == 0 {
				continue
			}
			ids := make([]string, len(entries))
			for i, e := range entries {
				ids[i] = e.Identity()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", weekdayNames[wd], g, strings.Join(ids, ", "))
		}
	}
	return w.Flush()
}
