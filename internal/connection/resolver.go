package connection

import (
	"sort"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/core"
)

// Resolver picks the version of a connection that currently governs billing.
type Resolver struct {
	clock clock.Clock
}

func NewResolver(c clock.Clock) *Resolver {
	if c == nil {
		c = clock.System()
	}
	return &Resolver{clock: c}
}

// SortByLastModified returns a copy of records ordered by last modified time.
// Records with equal times keep their arrival order.
func SortByLastModified(records []core.ConnectionRecord) []core.ConnectionRecord {
	sorted := append([]core.ConnectionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastModifiedTime() < sorted[j].LastModifiedTime()
	})
	return sorted
}

// Selection is the outcome of choosing the active version.
type Selection struct {
	Record core.ConnectionRecord
	// SkippedPending is set when the latest version was a modification not yet in effect.
	SkippedPending bool
}

// SelectActive returns the active version of a connection history.
//
// The latest modified version wins unless it is a modification whose effective
// date is still in the future, in which case the version before it is returned.
// Only one step back is taken: with two chained pending modifications the
// returned version may itself not be in effect yet.
func (r *Resolver) SelectActive(records []core.ConnectionRecord) (core.ConnectionRecord, error) {
	sel, err := r.Select(records)
	return sel.Record, err
}

func (r *Resolver) Select(records []core.ConnectionRecord) (Selection, error) {
	if len(records) == 0 {
		return Selection{}, core.ErrNoRecordsFound
	}

	sorted := SortByLastModified(records)
	if len(sorted) == 1 {
		return Selection{Record: sorted[0]}, nil
	}

	last := sorted[len(sorted)-1]
	if last.ApplicationType.IsModify() && last.DateEffectiveFrom > r.clock.Now().UnixMilli() {
		return Selection{Record: sorted[len(sorted)-2], SkippedPending: true}, nil
	}

	return Selection{Record: last}, nil
}
