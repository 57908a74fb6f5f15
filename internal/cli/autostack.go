package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/immich-tools/internal/core"
	"github.com/spf13/cobra"
)

var autostackCmd = &cobra.Command{
	Use:   "autostack <directory>",
	Short: "Stack variants of the same shot",
	Long: `Group the assets in a folder by base name (IMG_1234.CR2, IMG_1234.jpg,
IMG_1234_edit.psd, ...) and create one stack per group on the server.

Raw files come first in each stack. With --copy-metadata the capture date and
location of the raw file are copied to the other members of its stack.

Examples:
  immich-tools autostack /photos/2020/trip
  immich-tools autostack -r -m /photos/2020
  immich-tools -n autostack -r /photos          Show stacks without creating them`,
	Args: cobra.ExactArgs(1),
	Run:  runAutostack,
}

var (
	autostackRecursive    bool
	autostackCopyMetadata bool
)

func init() {
	autostackCmd.Flags().BoolVarP(&autostackRecursive, "recursive", "r", false, "Include subfolders")
	autostackCmd.Flags().BoolVarP(&autostackCopyMetadata, "copy-metadata", "m", false, "Copy date and location from the raw file to the rest of the stack")
}

func runAutostack(cmd *cobra.Command, args []string) {
	c := initContext()

	ctx, stop := signalContext()
	defer stop()

	c.Logger.Info("autostack", "directory", args[0], "recursive", autostackRecursive, "copy_metadata", autostackCopyMetadata, "dry_run", c.DryRun)

	result, err := core.AutoStack(ctx, c.Client, core.AutoStackOptions{
		Directory:      args[0],
		Recursive:      autostackRecursive,
		CopyMetadata:   autostackCopyMetadata,
		DryRun:         c.DryRun,
		MaxConcurrency: c.Config.MaxConcurrency,
	}, os.Stdout)
	if err != nil {
		exitError("%v", err)
	}

	if !printAutostackSummary(os.Stdout, result, c.DryRun, autostackCopyMetadata) {
		os.Exit(1)
	}
}

// printAutostackSummary writes the closing lines of a run and reports
// whether every stack was created.
func printAutostackSummary(w io.Writer, result *core.AutoStackResult, dryRun, copyMetadata bool) bool {
	if result.NothingToStack {
		fmt.Fprintln(w, "Nothing to stack")
		return true
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	switch {
	case dryRun:
		fmt.Fprintln(w, "Dry run, no changes made")
	case result.StacksFailed > 0:
		red.Fprintf(w, "\n%d of %d stacks failed\n", result.StacksFailed, result.StacksCreated+result.StacksFailed)
		return false
	default:
		green.Fprintf(w, "\nCreated %d stacks", result.StacksCreated)
		if copyMetadata {
			green.Fprintf(w, ", updated %d assets", result.AssetsUpdated)
		}
		fmt.Fprintln(w)
	}
	return true
}
