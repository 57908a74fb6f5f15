package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/immich-tools/internal/core"
	"github.com/spf13/cobra"
)

var datefixCmd = &cobra.Command{
	Use:   "datefix <directory> <date>",
	Short: "Set the capture date of every asset in a folder",
	Long: `Set the capture date of every asset in a folder to <date>.

With --relative the earliest asset gets <date> and every other asset keeps its
offset from it, so the sequence of a shoot survives a wrong camera clock.
Dates are read in the local time zone unless they carry an offset.

Examples:
  immich-tools datefix /photos/scans "1998-07-14"
  immich-tools datefix -R /photos/trip "2020-01-01 09:30"
  immich-tools -n datefix -r /photos/trip "2020-01-01"   Show changes only`,
	Args: cobra.ExactArgs(2),
	Run:  runDatefix,
}

var (
	datefixRecursive bool
	datefixRelative  bool
)

func init() {
	datefixCmd.Flags().BoolVarP(&datefixRecursive, "recursive", "r", false, "Include subfolders")
	datefixCmd.Flags().BoolVarP(&datefixRelative, "relative", "R", false, "Shift dates relative to the earliest asset")
}

func runDatefix(cmd *cobra.Command, args []string) {
	// Reject a bad date before touching config or the network
	if !checkDate(os.Stdout, args[1]) {
		os.Exit(1)
	}

	c := initContext()

	ctx, stop := signalContext()
	defer stop()

	c.Logger.Info("datefix", "directory", args[0], "date", args[1], "recursive", datefixRecursive, "relative", datefixRelative, "dry_run", c.DryRun)

	result, err := core.DateFix(ctx, c.Client, core.DateFixOptions{
		Directory:      args[0],
		Date:           args[1],
		Recursive:      datefixRecursive,
		Relative:       datefixRelative,
		DryRun:         c.DryRun,
		MaxConcurrency: c.Config.MaxConcurrency,
	}, os.Stdout)
	if err != nil {
		exitError("%v", err)
	}

	printDatefixSummary(os.Stdout, result, c.DryRun)
}

// checkDate prints the abort line for a date that cannot be parsed
func checkDate(w io.Writer, date string) bool {
	if _, err := core.ParseDate(date); err != nil {
		core.ReportBadDate(w, date)
		return false
	}
	return true
}

func printDatefixSummary(w io.Writer, result *core.DateFixResult, dryRun bool) {
	switch {
	case result.Assets == 0:
		fmt.Fprintln(w, "No assets found")
	case dryRun:
		fmt.Fprintf(w, "Dry run, %d of %d assets would change\n", result.Changed, result.Assets)
	default:
		color.New(color.FgGreen).Fprintf(w, "Updated %d of %d assets\n", result.Changed, result.Assets)
	}
}
