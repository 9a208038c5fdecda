package reader

import (
	"regexp"
	"time"
)

// Dataset snapshots are stamped like "campaigns_2024-06-01T12-00-00.parquet".
var anchorPattern = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})T`)

// AnchorDateFromPath derives the dataset's anchor date from the snapshot
// date embedded in its filename. The anchor date stands in for "today" in
// all relative date-window math, so results stay stable no matter when the
// dataset is queried.
//
// The second return value is false when the filename carries no parseable
// date stamp; callers are expected to fall back to the current date and
// record a warning.
func AnchorDateFromPath(path string) (time.Time, bool) {
	m := anchorPattern.FindStringSubmatch(path)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
