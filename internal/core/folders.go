package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilupskalvis/immich-tools/internal/immich"
)

// ResolveFolders expands root into the remote folder paths to query.
// Without recursion that is root alone. With recursion it is every folder the
// server knows that lies at or below root, or root alone if the server lists
// no folders at all.
func ResolveFolders(ctx context.Context, client immich.APIClient, root string, recursive bool) ([]string, error) {
	if !recursive {
		return []string{root}, nil
	}

	paths, err := client.UniquePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve folders: %w", err)
	}
	if len(paths) == 0 {
		return []string{root}, nil
	}

	// Immich may report library paths without the leading slash
	rooted := strings.HasPrefix(root, "/")

	var folders []string
	for _, p := range paths {
		if rooted && !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if IsWithin(root, p) {
			folders = append(folders, p)
		}
	}
	return folders, nil
}
