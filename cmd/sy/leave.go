package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zulandar/shiftyard/internal/cell"
	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/store"
)

// leaveTypes maps the --type flag to a pre-schedule state.
var leaveTypes = map[string]cell.LeaveState{
	"none":    cell.LeaveEmpty,
	"high":    cell.LeaveHigh,
	"low":     cell.LeaveLow,
	"special": cell.LeaveSpecial,
}

func newLeaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Requested leave commands",
	}

	cmd.AddCommand(newLeaveSetCmd())
	cmd.AddCommand(newLeaveListCmd())
	cmd.AddCommand(newLeaveClearCmd())
	return cmd
}

func newLeaveSetCmd() *cobra.Command {
	var (
		configPath string
		leaveType  string
	)

	cmd := &cobra.Command{
		Use:   "set CYCLE MEMBER DATE",
		Short: "Set the requested leave of a member on a date",
		Long:  "Sets one pre-schedule cell and saves the leaves of the cycle. Use --type none to remove a leave.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			return runLeaveSet(cmd, configPath, id, args[1], args[2], leaveType)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().StringVarP(&leaveType, "type", "t", "high", "leave type: high, low, special or none")
	return cmd
}

func runLeaveSet(cmd *cobra.Command, configPath string, cycleID uint, member, date, leaveType string) error {
	target, ok := leaveTypes[leaveType]
	if !ok {
		return fmt.Errorf("unknown leave type %q (want high, low, special or none)", leaveType)
	}
	day, err := grid.ParseDate(date)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, log, err := openSession(ctx, configPath, cycleID)
	if err != nil {
		return err
	}
	defer log.Sync()

	// A cell only cycles forward, so step until it lands on the target.
	reached := false
	for range cell.LeaveStateCount {
		st, err := sess.Advance(member, day)
		if err != nil {
			return err
		}
		if st == cell.State(target) {
			reached = true
			break
		}
	}
	if !reached {
		return fmt.Errorf("cell of %s on %s cannot hold a %s leave", member, date, leaveType)
	}

	n, err := sess.SaveLeaves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: %s (%d leaves saved)\n", member, date, target, n)
	return nil
}

func newLeaveListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list CYCLE",
		Short: "List the saved leaves of a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			return runLeaveList(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	return cmd
}

func runLeaveList(cmd *cobra.Command, configPath string, cycleID uint) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if _, err := store.GetCycle(gormDB, cycleID); err != nil {
		return err
	}
	marks, err := store.LoadLeaves(gormDB, cycleID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(marks) == 0 {
		fmt.Fprintln(out, "No leaves saved.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tDATE\tTYPE\tWEIGHT")
	for _, m := range marks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.Name, m.Date.Format(grid.DateLayout), m.State, m.Weight())
	}
	return w.Flush()
}

func newLeaveClearCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "clear CYCLE",
		Short: "Delete every saved leave of a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd, fmt.Sprintf("This will delete every saved leave of cycle %d.", id)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return runLeaveClear(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runLeaveClear(cmd *cobra.Command, configPath string, cycleID uint) error {
	ctx := context.Background()
	sess, log, err := openSession(ctx, configPath, cycleID)
	if err != nil {
		return err
	}
	defer log.Sync()

	n, err := sess.ClearLeaves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d leaves from cycle %d\n", n, cycleID)
	return nil
}
