// Package models defines the Immich API payloads used throughout immich-tools,
// including assets, their EXIF subset, and the stack and update requests.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Asset is a media file tracked by the Immich server
type Asset struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	OriginalPath     string    `json:"originalPath"`
	LocalDateTime    time.Time `json:"localDateTime"`
	ExifInfo         *ExifInfo `json:"exifInfo,omitempty"`
}

// ExifInfo is the subset of extracted EXIF metadata the tools read and patch.
// A nil ExifInfo means the server extracted nothing for the asset.
type ExifInfo struct {
	DateTimeOriginal *time.Time `json:"dateTimeOriginal,omitempty"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
}

// Extension returns the lower-cased file extension including the dot
func (a *Asset) Extension() string {
	return strings.ToLower(filepath.Ext(a.OriginalFileName))
}

// Stem returns the original file name without its extension
func (a *Asset) Stem() string {
	return strings.TrimSuffix(a.OriginalFileName, filepath.Ext(a.OriginalFileName))
}

// CapturedAt returns the EXIF capture time, or nil when there is none
func (a *Asset) CapturedAt() *time.Time {
	if a.ExifInfo == nil {
		return nil
	}
	return a.ExifInfo.DateTimeOriginal
}

// Latitude returns the EXIF latitude, or nil when there is none
func (a *Asset) Latitude() *float64 {
	if a.ExifInfo == nil {
		return nil
	}
	return a.ExifInfo.Latitude
}

// Longitude returns the EXIF longitude, or nil when there is none
func (a *Asset) Longitude() *float64 {
	if a.ExifInfo == nil {
		return nil
	}
	return a.ExifInfo.Longitude
}
