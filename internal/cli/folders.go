package cli

import (
	"fmt"

	"github.com/kilupskalvis/immich-tools/internal/core"
	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders [<directory>]",
	Short: "List the folders a command would process",
	Long: `Print the folders that autostack and datefix would read for <directory>.
Without a directory every folder known to the server is listed.

Examples:
  immich-tools folders
  immich-tools folders -r /photos/2020`,
	Args: cobra.MaximumNArgs(1),
	Run:  runFolders,
}

var foldersRecursive bool

func init() {
	foldersCmd.Flags().BoolVarP(&foldersRecursive, "recursive", "r", false, "Include subfolders")
}

func runFolders(cmd *cobra.Command, args []string) {
	c := initContext()

	ctx, stop := signalContext()
	defer stop()

	var folders []string
	var err error
	if len(args) == 0 {
		folders, err = c.Client.UniquePaths(ctx)
	} else {
		folders, err = core.ResolveFolders(ctx, c.Client, args[0], foldersRecursive)
	}
	if err != nil {
		exitError("%v", err)
	}

	for _, f := range folders {
		fmt.Println(f)
	}
}
