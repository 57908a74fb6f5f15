package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/kilupskalvis/immich-tools/internal/immich"
	"github.com/kilupskalvis/immich-tools/internal/models"
	"golang.org/x/sync/errgroup"
)

// ParseDate parses a free-form date/time in the local time zone.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("cannot parse date: empty input")
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse date %q: %w", s, err)
	}
	return t, nil
}

// ReportBadDate prints the line that aborts a run on an unparseable date.
func ReportBadDate(out io.Writer, date string) {
	fmt.Fprintf(out, "ERROR: Cannot parse date %s. Aborting.\n", date)
}

// Baseline returns the earliest EXIF capture time among assets, or nil if no
// asset has one.
func Baseline(assets []*models.Asset) *time.Time {
	var earliest *time.Time
	for _, a := range assets {
		t := a.CapturedAt()
		if t == nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
	}
	return earliest
}

// ShiftDate returns the new capture time for an asset. With a baseline the
// asset keeps its offset from the baseline, measured from target; otherwise,
// or when the asset has no capture time, it is target itself.
func ShiftDate(target time.Time, baseline, captured *time.Time) time.Time {
	if baseline == nil || captured == nil {
		return target
	}
	return target.Add(captured.Sub(*baseline))
}

// DateChange is a pending capture time update.
type DateChange struct {
	Asset *models.Asset
	Date  time.Time
}

// PlanDateChanges computes the new capture time of every asset and returns
// the ones that differ from the current value, in input order.
func PlanDateChanges(assets []*models.Asset, target time.Time, relative bool) []DateChange {
	var baseline *time.Time
	if relative {
		baseline = Baseline(assets)
	}

	var changes []DateChange
	for _, a := range assets {
		captured := a.CapturedAt()
		date := ShiftDate(target, baseline, captured)
		if captured != nil && captured.Equal(date) {
			continue
		}
		changes = append(changes, DateChange{Asset: a, Date: date})
	}
	return changes
}

// DateFixOptions configures a datefix run.
type DateFixOptions struct {
	Directory      string
	Date           string
	Recursive      bool
	Relative       bool
	DryRun         bool
	MaxConcurrency int
}

// DateFixResult contains the outcome of a datefix run.
type DateFixResult struct {
	Assets    int
	Changed   int // updated, or that would be updated in a dry run
	Unchanged int
}

// DateFix sets the capture time of every asset below opts.Directory to
// opts.Date, or shifts them relative to the earliest one when opts.Relative
// is set. The date is parsed before any request is made. Updates are sent
// concurrently; every one is awaited and the first failure is returned.
func DateFix(ctx context.Context, client immich.APIClient, opts DateFixOptions, out io.Writer) (*DateFixResult, error) {
	if out == nil {
		out = io.Discard
	}

	target, err := ParseDate(opts.Date)
	if err != nil {
		ReportBadDate(out, opts.Date)
		return nil, err
	}

	assets, err := CollectAssets(ctx, client, opts.Directory, opts.Recursive, opts.MaxConcurrency)
	if err != nil {
		return nil, err
	}

	result := &DateFixResult{Assets: len(assets)}
	if len(assets) == 0 {
		return result, nil
	}

	changes := PlanDateChanges(assets, target, opts.Relative)
	result.Unchanged = len(assets) - len(changes)

	w := &syncWriter{w: out}

	var g errgroup.Group
	if opts.MaxConcurrency > 0 {
		g.SetLimit(opts.MaxConcurrency)
	}

	for _, change := range changes {
		fmt.Fprintf(w, "Changing date of %s to %s\n",
			RelativePath(opts.Directory, change.Asset), change.Date.Format(time.RFC3339Nano))
		if opts.DryRun {
			continue
		}

		g.Go(func() error {
			date := change.Date
			err := client.UpdateAsset(ctx, change.Asset.ID, &models.UpdateAsset{DateTimeOriginal: &date})
			if err != nil {
				reportUpdateFailure(w, "update asset date of", change.Asset.ID, err)
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	result.Changed = len(changes)
	return result, nil
}

// syncWriter serializes writes from concurrent requests.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
