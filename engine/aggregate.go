package engine

import (
	"sort"
	"strings"
)

// GroupAggregate holds the per-group campaign metrics: row count, pledged
// sum, successful/failed counts, and the derived success rate.
//
// Name is empty for the single implicit group of an ungrouped aggregation.
// SuccessRate is a percentage of decided campaigns
// (successful/(successful+failed) x 100) and nil when no campaign in the
// group reached a decided state.
type GroupAggregate struct {
	Name           string   `json:"name,omitempty"`
	TotalCampaigns int64    `json:"total_campaigns"`
	TotalPledged   float64  `json:"total_pledged"`
	Successful     int64    `json:"successful_campaigns"`
	Failed         int64    `json:"failed_campaigns"`
	SuccessRate    *float64 `json:"success_rate,omitempty"`
}

// metric extracts a tracked statistic by key; nil means undefined.
func (g GroupAggregate) metric(key string) *float64 {
	switch key {
	case MetricTotalCampaigns:
		v := float64(g.TotalCampaigns)
		return &v
	case MetricTotalPledged:
		if g.TotalCampaigns == 0 {
			return nil
		}
		v := g.TotalPledged
		return &v
	case MetricSuccessful:
		v := float64(g.Successful)
		return &v
	case MetricSuccessRate:
		return g.SuccessRate
	default:
		return nil
	}
}

// Keys of the tracked statistics, as they appear in response payloads.
const (
	MetricTotalCampaigns = "total_campaigns"
	MetricTotalPledged   = "total_pledged"
	MetricSuccessful     = "successful_campaigns"
	MetricSuccessRate    = "success_rate"
)

// TrackedMetrics lists the statistic keys in display order.
func TrackedMetrics() []string {
	return []string{MetricTotalCampaigns, MetricTotalPledged, MetricSuccessful, MetricSuccessRate}
}

// accumulate folds one row into the aggregate. Null pledged values
// contribute 0 to the sum without affecting counts; state comparison is
// case-insensitive.
func (g *GroupAggregate) accumulate(row map[string]interface{}) {
	g.TotalCampaigns++
	if v, ok := fieldFloat(row, ColPledged); ok {
		g.TotalPledged += v
	}
	if s, ok := fieldString(row, ColState); ok {
		switch strings.ToLower(s) {
		case StateSuccessful:
			g.Successful++
		case StateFailed:
			g.Failed++
		}
	}
}

// finalize computes the derived success rate once all rows are folded in.
func (g *GroupAggregate) finalize() {
	if decided := g.Successful + g.Failed; decided > 0 {
		rate := float64(g.Successful) / float64(decided) * 100
		g.SuccessRate = &rate
	}
}

// Aggregate computes grouped metrics over the rows. With an empty groupBy
// it returns a single implicit group covering every row (present even when
// rows is empty, so counts read as zero). With a group column it returns
// one aggregate per distinct non-null, non-empty group key, sorted by
// group name for deterministic output; empty input yields an empty,
// well-typed slice.
func Aggregate(rows []map[string]interface{}, groupBy string) []GroupAggregate {
	if groupBy == "" {
		var g GroupAggregate
		for _, row := range rows {
			g.accumulate(row)
		}
		g.finalize()
		return []GroupAggregate{g}
	}

	groups := make(map[string]*GroupAggregate)
	for _, row := range rows {
		key, ok := fieldString(row, groupBy)
		if !ok || key == "" {
			continue
		}
		g, exists := groups[key]
		if !exists {
			g = &GroupAggregate{Name: key}
			groups[key] = g
		}
		g.accumulate(row)
	}

	out := make([]GroupAggregate, 0, len(groups))
	for _, g := range groups {
		g.finalize()
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
