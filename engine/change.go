package engine

// ChangeMetric is a current-vs-previous comparison of one statistic.
// Current and Previous are nil when the underlying value is undefined for
// that side (no previous window, or an undefined rate). ChangePct follows
// the CalcChange contract, except for success rates where it carries an
// absolute point difference instead of a percentage.
type ChangeMetric struct {
	Current   *float64 `json:"current"`
	Previous  *float64 `json:"previous"`
	ChangePct *float64 `json:"change_pct"`
}

// CalcChange computes the percentage change from previous to current.
//
// The degenerate cases are fixed by contract:
//   - either side nil (undefined) -> nil
//   - both exactly 0              -> 0
//   - previous 0, current not     -> nil, never an infinity sentinel
func CalcChange(current, previous *float64) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	if *previous == 0 {
		if *current == 0 {
			zero := 0.0
			return &zero
		}
		return nil
	}
	change := (*current - *previous) / *previous * 100
	return &change
}

// pointDiff computes an absolute difference, used for success-rate changes
// which are percentage-point deltas rather than relative changes.
func pointDiff(current, previous *float64) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	diff := *current - *previous
	return &diff
}

// changeFor computes the change of one tracked statistic between two
// aggregates. Either aggregate may be nil (group absent on that side).
func changeFor(metric string, current, previous *GroupAggregate) *float64 {
	var cur, prev *float64
	if current != nil {
		cur = current.metric(metric)
	}
	if previous != nil {
		prev = previous.metric(metric)
	}
	if metric == MetricSuccessRate {
		return pointDiff(cur, prev)
	}
	return CalcChange(cur, prev)
}

// CompareAggregates produces a ChangeMetric per group per tracked
// statistic from two aggregate sets keyed by group name. Groups present on
// only one side are included with the missing side undefined.
func CompareAggregates(current, previous []GroupAggregate) map[string]map[string]ChangeMetric {
	curByName := make(map[string]*GroupAggregate, len(current))
	for i := range current {
		curByName[current[i].Name] = &current[i]
	}
	prevByName := make(map[string]*GroupAggregate, len(previous))
	for i := range previous {
		prevByName[previous[i].Name] = &previous[i]
	}

	names := make(map[string]bool, len(curByName)+len(prevByName))
	for name := range curByName {
		names[name] = true
	}
	for name := range prevByName {
		names[name] = true
	}

	out := make(map[string]map[string]ChangeMetric, len(names))
	for name := range names {
		cur := curByName[name]
		prev := prevByName[name]
		metrics := make(map[string]ChangeMetric, 4)
		for _, key := range TrackedMetrics() {
			var cm ChangeMetric
			if cur != nil {
				cm.Current = cur.metric(key)
			}
			if prev != nil {
				cm.Previous = prev.metric(key)
			}
			cm.ChangePct = changeFor(key, cur, prev)
			metrics[key] = cm
		}
		out[name] = metrics
	}
	return out
}
