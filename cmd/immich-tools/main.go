// Command immich-tools runs bulk maintenance jobs against an Immich server.
package main

import (
	"os"

	"github.com/kilupskalvis/immich-tools/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
