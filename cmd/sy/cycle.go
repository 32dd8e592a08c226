package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/models"
	"github.com/zulandar/shiftyard/internal/store"
)

func newCycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Schedule cycle commands",
	}

	cmd.AddCommand(newCycleListCmd())
	cmd.AddCommand(newCycleShowCmd())
	cmd.AddCommand(newCycleCreateCmd())
	cmd.AddCommand(newCycleCommentCmd())
	cmd.AddCommand(newCycleEventsCmd())
	return cmd
}

func newCycleListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedule cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycleList(cmd, configPath, status)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (draft, finished)")
	return cmd
}

func runCycleList(cmd *cobra.Command, configPath, status string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	cycles, err := store.ListCycles(gormDB, status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cycles) == 0 {
		fmt.Fprintln(out, "No cycles found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tEND\tGROUP\tSTATUS")
	for _, c := range cycles {
		group := c.ShiftGroup
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID,
			c.StartDate.Format(grid.DateLayout), c.EndDate.Format(grid.DateLayout), group, c.Status)
	}
	return w.Flush()
}

func newCycleShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a cycle with its members, leaves and comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			return runCycleShow(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	return cmd
}

func runCycleShow(cmd *cobra.Command, configPath string, id uint) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	cycle, err := store.GetCycle(gormDB, id)
	if err != nil {
		return err
	}
	members, err := store.ListMembers(gormDB, id)
	if err != nil {
		return err
	}
	leaves, err := store.LoadLeaves(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cycle %d: %s to %s\n", cycle.ID,
		cycle.StartDate.Format(grid.DateLayout), cycle.EndDate.Format(grid.DateLayout))
	fmt.Fprintf(out, "Status: %s\n", cycle.Status)
	if cycle.ShiftGroup != "" {
		fmt.Fprintf(out, "Shift group: %s\n", cycle.ShiftGroup)
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tEMPLOYEE\tA\tB\tC")
	for _, r := range memberRows(members) {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", r.name, r.employee, r.required["A"], r.required["B"], r.required["C"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(leaves) > 0 {
		fmt.Fprintf(out, "\nLeaves (%d):\n", len(leaves))
		for _, l := range leaves {
			fmt.Fprintf(out, "  %s  %s  %s\n", l.Date.Format(grid.DateLayout), l.Name, l.State)
		}
	}
	if cycle.Comment != "" {
		fmt.Fprintf(out, "\nComment:\n  %s\n", strings.ReplaceAll(cycle.Comment, "\n", "\n  "))
	}
	return nil
}

type memberRow struct {
	name     string
	employee string
	required map[string]int
}

// memberRows folds the per-category member rows into one row per name,
// keeping first-seen order.
func memberRows(members []models.CycleMember) []memberRow {
	var rows []memberRow
	index := make(map[string]int)
	for _, m := range members {
		i, ok := index[m.SnapshotName]
		if !ok {
			employee := "-"
			if m.EmployeeID != nil {
				employee = fmt.Sprintf("%d", *m.EmployeeID)
			}
			rows = append(rows, memberRow{name: m.SnapshotName, employee: employee, required: make(map[string]int)})
			i = len(rows) - 1
			index[m.SnapshotName] = i
		}
		rows[i].required[m.ShiftType] = m.RequiredDays
	}
	return rows
}

// membersFile is the YAML roster accepted by cycle create.
type membersFile struct {
	Members []struct {
		EmployeeID *uint          `yaml:"employee_id"`
		Name       string         `yaml:"name"`
		Required   map[string]int `yaml:"required"`
	} `yaml:"members"`
}

func loadMembers(path string) ([]store.MemberInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read members %s: %w", path, err)
	}
	var f membersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse members %s: %w", path, err)
	}
	if len(f.Members) == 0 {
		return nil, fmt.Errorf("members %s: no members listed", path)
	}
	out := make([]store.MemberInput, 0, len(f.Members))
	for i, m := range f.Members {
		for letter := range m.Required {
			if _, err := cell.ParseWorkLetter(letter); err != nil {
				return nil, fmt.Errorf("members %s: members[%d]: %w", path, i, err)
			}
		}
		out = append(out, store.MemberInput{EmployeeID: m.EmployeeID, Name: m.Name, Required: m.Required})
	}
	return out, nil
}

func newCycleCreateCmd() *cobra.Command {
	var (
		configPath  string
		start       string
		end         string
		group       string
		membersPath string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft cycle",
		Long: `Creates a draft cycle over an inclusive date range.

The members file lists the roster with required days per shift letter:

  members:
    - {employee_id: 11, name: Alice, required: {A: 8, B: 6, C: 4}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycleCreate(cmd, configPath, start, end, group, membersPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().StringVar(&start, "start", "", "first date of the cycle (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date of the cycle (YYYY-MM-DD)")
	cmd.Flags().StringVar(&group, "group", "", "shift group used for subtype assignment")
	cmd.Flags().StringVar(&membersPath, "members", "", "path to members YAML file")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("members")
	return cmd
}

func runCycleCreate(cmd *cobra.Command, configPath, start, end, group, membersPath string) error {
	startDate, err := grid.ParseDate(start)
	if err != nil {
		return err
	}
	endDate, err := grid.ParseDate(end)
	if err != nil {
		return err
	}
	members, err := loadMembers(membersPath)
	if err != nil {
		return err
	}
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	cycle, err := store.CreateCycle(gormDB, store.CreateCycleOpts{
		Start:      startDate,
		End:        endDate,
		ShiftGroup: group,
		Members:    members,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created cycle %d (%s to %s, %d members)\n",
		cycle.ID, start, end, len(members))
	return nil
}

func newCycleCommentCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "comment ID [TEXT]",
		Short: "Show or set the free-text comment of a cycle",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				text, err := store.GetComment(gormDB, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			if err := store.SetComment(gormDB, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment saved for cycle %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	return cmd
}

func newCycleEventsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "events ID",
		Short: "Show the editing history of a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			return runCycleEvents(cmd, configPath, id, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of events")
	return cmd
}

func runCycleEvents(cmd *cobra.Command, configPath string, id uint, limit int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	events, err := store.ListEvents(gormDB, id, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTAGE\tACTION\tOUTCOME\tMESSAGE")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ev.CreatedAt.Format("2006-01-02 15:04:05"),
			ev.Stage, ev.Action, ev.Outcome, ev.Message)
	}
	return w.Flush()
}
