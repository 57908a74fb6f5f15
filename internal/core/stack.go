package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/kilupskalvis/immich-tools/internal/immich"
	"github.com/kilupskalvis/immich-tools/internal/models"
)

// rawExtensions lists camera-native formats, taken from Immich's mime-type table.
// Everything else, including .psd, counts as an edited variant.
var rawExtensions = map[string]bool{
	".3fr": true,
	".ari": true,
	".arw": true,
	".cap": true,
	".cin": true,
	".cr2": true,
	".cr3": true,
	".crw": true,
	".dcr": true,
	".dng": true,
	".erf": true,
	".fff": true,
	".iiq": true,
	".k25": true,
	".kdc": true,
	".mrw": true,
	".nef": true,
	".nrw": true,
	".orf": true,
	".ori": true,
	".pef": true,
	".raf": true,
	".raw": true,
	".rw2": true,
	".rwl": true,
	".sr2": true,
	".srf": true,
	".srw": true,
	".x3f": true,
}

// baseNamePattern matches camera-style names such as IMG_1234 followed by an
// optional "_edit" or "-2" style suffix.
var baseNamePattern = regexp.MustCompile(`^([A-Za-z]+_[0-9]+)(?:[_-].*)?$`)

// BaseName returns the name shared by all variants of a shot.
func BaseName(asset *models.Asset) string {
	stem := asset.Stem()
	if m := baseNamePattern.FindStringSubmatch(stem); m != nil {
		return m[1]
	}
	return stem
}

// IsRaw reports whether the asset is in a camera raw format.
func IsRaw(asset *models.Asset) bool {
	return rawExtensions[asset.Extension()]
}

// GroupAssets groups assets by base name. Only groups with more than one
// member are returned, in the order their first member appears in assets.
func GroupAssets(assets []*models.Asset) [][]*models.Asset {
	index := make(map[string]int)
	var groups [][]*models.Asset

	for _, a := range assets {
		name := BaseName(a)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], a)
	}

	var stacks [][]*models.Asset
	for _, g := range groups {
		if len(g) > 1 {
			stacks = append(stacks, g)
		}
	}
	return stacks
}

// SortStack returns the assets in stack order: raw files first, then by
// directory relative to root descending, then by file name ascending.
// Full ties keep their input order.
func SortStack(root string, assets []*models.Asset) []*models.Asset {
	sorted := append([]*models.Asset(nil), assets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := IsRaw(a), IsRaw(b); ra != rb {
			return ra
		}
		if da, db := relativeDir(root, a), relativeDir(root, b); da != db {
			return da > db
		}
		return a.Stem() < b.Stem()
	})
	return sorted
}

// SourceOfTruth returns the last raw asset of a sorted stack, or nil if the
// stack holds no raw file.
func SourceOfTruth(sorted []*models.Asset) *models.Asset {
	for i := len(sorted) - 1; i >= 0; i-- {
		if IsRaw(sorted[i]) {
			return sorted[i]
		}
	}
	return nil
}

// MetadataUpdate builds the patch copying source's capture time and location
// onto target. Values source lacks fall back to target's own.
func MetadataUpdate(source, target *models.Asset) *models.UpdateAsset {
	update := &models.UpdateAsset{
		DateTimeOriginal: source.CapturedAt(),
		Latitude:         source.Latitude(),
		Longitude:        source.Longitude(),
	}
	if update.DateTimeOriginal == nil {
		update.DateTimeOriginal = target.CapturedAt()
	}
	if update.Latitude == nil {
		update.Latitude = target.Latitude()
	}
	if update.Longitude == nil {
		update.Longitude = target.Longitude()
	}
	return update
}

// AutoStackOptions configures an autostack run.
type AutoStackOptions struct {
	Directory      string
	Recursive      bool
	CopyMetadata   bool
	DryRun         bool
	MaxConcurrency int
}

// AutoStackResult contains the outcome of an autostack run.
type AutoStackResult struct {
	Assets         int
	StacksCreated  int
	StacksFailed   int
	AssetsUpdated  int
	NothingToStack bool
}

// AutoStack groups the assets below opts.Directory into stacks and creates
// them on the server, optionally copying metadata from the raw file of each
// stack to its other members. Progress lines are written to out.
//
// A stack the server rejects is reported and skipped. Transport failures and
// rejected metadata updates abort the run.
func AutoStack(ctx context.Context, client immich.APIClient, opts AutoStackOptions, out io.Writer) (*AutoStackResult, error) {
	if out == nil {
		out = io.Discard
	}

	assets, err := CollectAssets(ctx, client, opts.Directory, opts.Recursive, opts.MaxConcurrency)
	if err != nil {
		return nil, err
	}

	result := &AutoStackResult{Assets: len(assets)}
	if len(assets) == 0 {
		result.NothingToStack = true
		return result, nil
	}

	groups := GroupAssets(assets)
	if len(groups) == 0 {
		result.NothingToStack = true
		return result, nil
	}

	for i, group := range groups {
		sorted := SortStack(opts.Directory, group)

		ids := make([]string, len(sorted))
		paths := make([]string, len(sorted))
		for j, a := range sorted {
			ids[j] = a.ID
			paths[j] = RelativePath(opts.Directory, a)
		}

		fmt.Fprintf(out, "Stack %d/%d: %s\n", i+1, len(groups), strings.Join(paths, ", "))

		if !opts.DryRun {
			if err := client.CreateStack(ctx, ids); err != nil {
				var apiErr *immich.APIError
				if !errors.As(err, &apiErr) {
					return result, err
				}
				fmt.Fprintf(out, "ERROR: Failed to create stack %d/%d: %s\n", i+1, len(groups), apiErr.StatusText())
				if apiErr.Body != "" {
					fmt.Fprintln(out, apiErr.Body)
				}
				result.StacksFailed++
			} else {
				result.StacksCreated++
			}
		}

		if opts.CopyMetadata {
			n, err := copyStackMetadata(ctx, client, opts, sorted, out)
			result.AssetsUpdated += n
			if err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// copyStackMetadata propagates metadata from the stack's raw file to every
// member whose local time differs from it, one update at a time.
func copyStackMetadata(ctx context.Context, client immich.APIClient, opts AutoStackOptions, sorted []*models.Asset, out io.Writer) (int, error) {
	source := SourceOfTruth(sorted)
	if source == nil {
		return 0, nil
	}

	updated := 0
	for _, target := range sorted {
		if target.LocalDateTime.Equal(source.LocalDateTime) {
			continue
		}

		fmt.Fprintf(out, "Copying metadata from %s to %s\n",
			RelativePath(opts.Directory, source), RelativePath(opts.Directory, target))
		if opts.DryRun {
			continue
		}

		if err := client.UpdateAsset(ctx, target.ID, MetadataUpdate(source, target)); err != nil {
			reportUpdateFailure(out, "copy metadata to", target.ID, err)
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// reportUpdateFailure prints the status and body of a rejected update.
func reportUpdateFailure(out io.Writer, action, id string, err error) {
	var apiErr *immich.APIError
	if !errors.As(err, &apiErr) {
		return
	}
	fmt.Fprintf(out, "ERROR: Failed to %s %s: %s\n", action, id, apiErr.StatusText())
	fmt.Fprintln(out, apiErr.Body)
}
