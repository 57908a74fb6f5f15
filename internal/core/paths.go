package core

import (
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/immich-tools/internal/models"
)

// RelativePath returns the asset's remote path relative to root with forward
// slashes. Paths that cannot be made relative are returned unchanged.
func RelativePath(root string, asset *models.Asset) string {
	rel, err := filepath.Rel(root, asset.OriginalPath)
	if err != nil {
		return filepath.ToSlash(asset.OriginalPath)
	}
	return filepath.ToSlash(rel)
}

// relativeDir returns the directory of the asset relative to root, or "" for
// assets directly inside root.
func relativeDir(root string, asset *models.Asset) string {
	rel, err := filepath.Rel(root, asset.OriginalPath)
	if err != nil {
		rel = asset.OriginalPath
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return ""
	}
	return filepath.ToSlash(dir)
}

// IsWithin reports whether path is root itself or nested below it.
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
