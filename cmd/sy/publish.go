package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zulandar/shiftyard/internal/grid"
	"github.com/zulandar/shiftyard/internal/remote"
)

func newPublishCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "publish CYCLE",
		Short: "Run a cycle through scheduling, verification, subtypes and upload",
		Long: `Runs the whole editing pipeline on a draft cycle:

  1. save the persisted leaves
  2. fetch a schedule from the optimizer and replay the leaves over it
  3. verify the schedule (stops if any check fails)
  4. assign shift subtypes from the cycle's shift group
  5. upload the schedule and mark the cycle finished

With --dry-run the upload rows are printed instead of written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			return runPublish(cmd, configPath, id, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the upload rows without writing them")
	return cmd
}

func runPublish(cmd *cobra.Command, configPath string, cycleID uint, dryRun bool) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	sess, log, err := openSession(ctx, configPath, cycleID)
	if err != nil {
		return err
	}
	defer log.Sync()

	n, err := sess.SaveLeaves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %d leaves\n", n)

	if err := sess.RunAutoSchedule(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Schedule applied")

	report, passed, err := sess.Verify(ctx)
	if err != nil {
		return err
	}
	printReport(out, report)
	if !passed {
		return fmt.Errorf("cycle %d failed verification", cycleID)
	}

	res, err := sess.AssignSubtypes(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Assigned %d subtypes\n", res.Assigned)

	if dryRun {
		rows, err := sess.UploadPreview()
		if err != nil {
			return err
		}
		return printUploadRows(out, rows)
	}

	rows, err := sess.Upload(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Uploaded %d shifts, cycle %d finished\n", rows, cycleID)
	return nil
}

func printReport(out io.Writer, r remote.Report) {
	checks := []struct {
		name string
		res  remote.CheckResult
	}{
		{"daily staffing", r.DailyStaffing},
		{"continuous work", r.ContinuousWork},
		{"shift connection", r.ShiftConnection},
	}
	for _, c := range checks {
		mark := "PASS"
		if !c.res.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(out, "  %s  %s\n", mark, c.name)
		if !c.res.Passed {
			for _, d := range c.res.Details {
				fmt.Fprintf(out, "        %s\n", d)
			}
		}
	}
}

func printUploadRows(out io.Writer, rows []grid.UploadRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMPLOYEE\tNAME\tDATE\tSHIFT\tSUBTYPE")
	for _, r := range rows {
		sub := r.ShiftSubtype
		if sub == "" {
			sub = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.EmployeeID, r.EmployeeName,
			r.WorkDate.Format(grid.DateLayout), r.ShiftType, sub)
	}
	return w.Flush()
}
