package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/immich-tools/internal/immich"
	"github.com/kilupskalvis/immich-tools/internal/models"
	"golang.org/x/sync/errgroup"
)

// FetchAssets lists the assets of every folder concurrently and flattens the
// results in folder order. All requests are awaited before returning; the
// first failure is reported. limit caps the requests in flight, 0 means none.
func FetchAssets(ctx context.Context, client immich.APIClient, folders []string, limit int) ([]*models.Asset, error) {
	results := make([][]*models.Asset, len(folders))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, folder := range folders {
		g.Go(func() error {
			assets, err := client.FolderAssets(ctx, folder)
			if err != nil {
				return err
			}
			results[i] = assets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch assets: %w", err)
	}

	var all []*models.Asset
	for _, assets := range results {
		for _, a := range assets {
			if a != nil {
				all = append(all, a)
			}
		}
	}
	return all, nil
}

// CollectAssets resolves the folders below root and fetches their assets.
func CollectAssets(ctx context.Context, client immich.APIClient, root string, recursive bool, limit int) ([]*models.Asset, error) {
	folders, err := ResolveFolders(ctx, client, root, recursive)
	if err != nil {
		return nil, err
	}
	return FetchAssets(ctx, client, folders, limit)
}
