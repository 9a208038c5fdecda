package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight/reader"
)

// Grouping dimensions reported in trending and funding payloads.
const (
	GroupTypeCategory    = "category"
	GroupTypeSubcategory = "subcategory"
)

// InsightsRequest selects the slice of the dataset to analyze: a category
// selection and a relative date window.
type InsightsRequest struct {
	Categories []string  `json:"categories"`
	Date       DateRange `json:"date"`
}

// TrendingItem is one named value in a ranked or rankable list.
type TrendingItem struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TrendingPayload carries per-metric trending lists. Mode is "change" when
// a period comparison was possible (values are period-over-period changes)
// and "value" under All Time (values are raw current aggregates).
type TrendingPayload struct {
	Mode      string                    `json:"mode"`
	GroupType string                    `json:"group_type"`
	Data      map[string][]TrendingItem `json:"data"`
}

// HistogramBin is one fixed, labeled goal-amount bucket.
type HistogramBin struct {
	Label string `json:"bin"`
	Count int64  `json:"count"`
}

// LocationCount is one entry of the top-locations ranking.
type LocationCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// AvgFundingPayload carries per-group average funding per backer.
type AvgFundingPayload struct {
	GroupType string         `json:"group_type"`
	Data      []TrendingItem `json:"data"`
}

// TopFundedEntry is the denormalized display subset of one top-funded
// campaign.
type TopFundedEntry struct {
	Name    string  `json:"name"`
	Creator string  `json:"creator"`
	Pledged float64 `json:"pledged"`
	Group   string  `json:"group"`
	Country string  `json:"country"`
	Link    string  `json:"link"`
}

// TopFundedPayload carries the funded-campaign leaderboard plus the label
// of its grouping column.
type TopFundedPayload struct {
	Rows       []TopFundedEntry `json:"rows"`
	GroupLabel string           `json:"group_label"`
}

// InsightsResult is the full analytics response for one request. Every
// section is computed independently; a section whose required column is
// missing degrades to its empty form while the others still populate.
type InsightsResult struct {
	Metrics             map[string]ChangeMetric `json:"metrics"`
	GoalDistribution    []HistogramBin          `json:"goal_distribution"`
	Trending            TrendingPayload         `json:"trending"`
	TopLocations        []LocationCount         `json:"top_locations"`
	AvgFundingPerBacker AvgFundingPayload       `json:"avg_funding_per_backer"`
	TopFunded           TopFundedPayload        `json:"top_funded"`
}

// Analyzer computes comparative analytics over the dataset. It is
// stateless across requests; KnownCategories (typically the facet list
// from the filter metadata) restricts category-mode rankings to real
// categories so stray group values don't pollute the charts.
type Analyzer struct {
	schema          *reader.Schema
	knownCategories map[string]bool
	logger          log.Logger
}

// NewAnalyzer creates an analyzer for the given schema. knownCategories
// may be nil, in which case category-mode rankings are not restricted.
func NewAnalyzer(schema *reader.Schema, knownCategories []string, logger log.Logger) *Analyzer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	var known map[string]bool
	if len(knownCategories) > 0 {
		known = make(map[string]bool, len(knownCategories))
		for _, c := range knownCategories {
			if c != "" && c != AllCategories {
				known[c] = true
			}
		}
	}
	return &Analyzer{schema: schema, knownCategories: known, logger: logger}
}

// Insights runs the full analytics pipeline: resolve the period windows,
// split the category-filtered rows into current and previous windows,
// aggregate both, and derive every section of the result.
func (a *Analyzer) Insights(src RowSource, req InsightsRequest, anchor time.Time) (*InsightsResult, error) {
	categories := normalizeSelection(req.Categories, AllCategories)
	allCategories := isAll(categories, AllCategories)
	singleCategory := ""
	if !allCategories && len(categories) == 1 {
		singleCategory = categories[0]
	}

	catSet := make(map[string]bool, len(categories))
	if !allCategories {
		for _, c := range categories {
			catSet[c] = true
		}
		if !a.schema.Has(ColCategory) {
			level.Warn(a.logger).Log("msg", "category filter ignored, column missing", "column", ColCategory)
			catSet = nil
			allCategories = true
			singleCategory = ""
		}
	}

	windows := ResolveWindows(req.Date, anchor)
	if !windows.AllTime && !a.schema.Has(ColDeadline) {
		level.Warn(a.logger).Log("msg", "deadline column missing, treating request as all time", "column", ColDeadline)
		windows = Windows{AllTime: true}
	}

	// One streaming pass splits the category-filtered rows into the two
	// comparison windows; only the filtered subset is materialized.
	var base, current, previous []map[string]interface{}
	err := src.Scan(func(row map[string]interface{}) error {
		if !allCategories {
			cat, ok := fieldString(row, ColCategory)
			if !ok || !catSet[cat] {
				return nil
			}
		}
		base = append(base, row)
		if windows.AllTime {
			current = append(current, row)
			return nil
		}
		if t, ok := fieldTime(row, ColDeadline); ok {
			switch {
			case windows.Current.Contains(t):
				current = append(current, row)
			case windows.Previous.Contains(t):
				previous = append(previous, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	groupCol, groupType := a.groupColumn(singleCategory)

	res := &InsightsResult{
		Metrics:          a.overallMetrics(current, previous, windows.AllTime),
		GoalDistribution: a.goalDistribution(current),
		Trending:         a.trending(current, previous, windows.AllTime, groupCol, groupType, singleCategory, allCategories),
		TopLocations:     a.topLocations(current),
		AvgFundingPerBacker: a.avgFundingPerBacker(
			current, groupCol, groupType, singleCategory, allCategories),
		TopFunded: a.topFunded(base, windows, singleCategory),
	}
	return res, nil
}

// groupColumn picks the grouping dimension: subcategory when exactly one
// category is selected and the column exists, category otherwise.
func (a *Analyzer) groupColumn(singleCategory string) (string, string) {
	if singleCategory != "" && a.schema.Has(ColSubcategory) {
		return ColSubcategory, GroupTypeSubcategory
	}
	if !a.schema.Has(ColCategory) {
		return "", GroupTypeCategory
	}
	return ColCategory, GroupTypeCategory
}

// overallMetrics builds the headline ChangeMetric map. Under All Time the
// previous side and all changes are undefined.
func (a *Analyzer) overallMetrics(current, previous []map[string]interface{}, allTime bool) map[string]ChangeMetric {
	cur := Aggregate(current, "")[0]

	metrics := make(map[string]ChangeMetric, 4)
	if allTime {
		for _, key := range TrackedMetrics() {
			metrics[key] = ChangeMetric{Current: cur.metric(key)}
		}
		return metrics
	}

	prev := Aggregate(previous, "")[0]
	for _, key := range TrackedMetrics() {
		metrics[key] = ChangeMetric{
			Current:   cur.metric(key),
			Previous:  prev.metric(key),
			ChangePct: changeFor(key, &cur, &prev),
		}
	}
	return metrics
}

// goalBins are the fixed histogram edges for the goal distribution. The
// labels never reorder and zero-count buckets stay in the output.
var goalBins = []struct {
	label string
	upper float64 // exclusive; the last bin is unbounded
}{
	{"<$1k", 1_000},
	{"$1k-$10k", 10_000},
	{"$10k-$100k", 100_000},
	{"$100k-$1m", 1_000_000},
	{">$1m", 0},
}

// goalDistribution assigns each positive, non-null goal amount to exactly
// one fixed bucket.
func (a *Analyzer) goalDistribution(rows []map[string]interface{}) []HistogramBin {
	out := make([]HistogramBin, len(goalBins))
	for i, b := range goalBins {
		out[i] = HistogramBin{Label: b.label}
	}

	if !a.schema.Has(ColGoal) {
		level.Warn(a.logger).Log("msg", "goal distribution unavailable, column missing", "column", ColGoal)
		return out
	}

	for _, row := range rows {
		goal, ok := fieldFloat(row, ColGoal)
		if !ok || goal <= 0 {
			continue
		}
		idx := len(goalBins) - 1
		for i, b := range goalBins[:len(goalBins)-1] {
			if goal < b.upper {
				idx = i
				break
			}
		}
		out[idx].Count++
	}
	return out
}

// trending builds the per-metric trending lists. In change mode the values
// are period-over-period changes (point differences for success rate); in
// value mode they are the raw current aggregates.
func (a *Analyzer) trending(current, previous []map[string]interface{}, allTime bool, groupCol, groupType, singleCategory string, allCategories bool) TrendingPayload {
	payload := TrendingPayload{
		Mode:      "change",
		GroupType: groupType,
		Data:      make(map[string][]TrendingItem, 4),
	}
	if allTime {
		payload.Mode = "value"
	}
	for _, key := range TrackedMetrics() {
		payload.Data[key] = []TrendingItem{}
	}

	if groupCol == "" {
		level.Warn(a.logger).Log("msg", "trending unavailable, no grouping column")
		return payload
	}

	curGroups := a.excludeParent(Aggregate(current, groupCol), groupType, singleCategory)

	if allTime {
		for i := range curGroups {
			g := &curGroups[i]
			if a.skipUnknownCategory(g.Name, groupType, allCategories) {
				continue
			}
			for _, key := range TrackedMetrics() {
				if v := g.metric(key); v != nil {
					payload.Data[key] = append(payload.Data[key], TrendingItem{Name: g.Name, Value: *v})
				}
			}
		}
		return payload
	}

	prevGroups := a.excludeParent(Aggregate(previous, groupCol), groupType, singleCategory)
	changes := CompareAggregates(curGroups, prevGroups)

	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, key := range TrackedMetrics() {
			if cm := changes[name][key]; cm.ChangePct != nil {
				payload.Data[key] = append(payload.Data[key], TrendingItem{Name: name, Value: *cm.ChangePct})
			}
		}
	}
	return payload
}

// excludeParent removes the selected parent category's own row from
// subcategory-grouped aggregates.
func (a *Analyzer) excludeParent(groups []GroupAggregate, groupType, singleCategory string) []GroupAggregate {
	if groupType != GroupTypeSubcategory || singleCategory == "" {
		return groups
	}
	out := groups[:0]
	for _, g := range groups {
		if g.Name != singleCategory {
			out = append(out, g)
		}
	}
	return out
}

// skipUnknownCategory reports whether a category-mode group should be
// dropped because it is not one of the known facet categories.
func (a *Analyzer) skipUnknownCategory(name, groupType string, allCategories bool) bool {
	if groupType != GroupTypeCategory || !allCategories || a.knownCategories == nil {
		return false
	}
	return !a.knownCategories[name]
}

// topLocations counts campaigns per country and keeps the five largest.
// Ties break by name so the ranking is deterministic.
func (a *Analyzer) topLocations(rows []map[string]interface{}) []LocationCount {
	out := []LocationCount{}
	if !a.schema.Has(ColCountry) {
		level.Warn(a.logger).Log("msg", "top locations unavailable, column missing", "column", ColCountry)
		return out
	}

	counts := make(map[string]int64)
	for _, row := range rows {
		c, ok := fieldString(row, ColCountry)
		if !ok || c == "" {
			continue
		}
		counts[c]++
	}

	for name, count := range counts {
		out = append(out, LocationCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topNLimit {
		out = out[:topNLimit]
	}
	return out
}

// avgFundingPerBacker derives sum(pledged)/sum(backers) per group. Groups
// whose backer sum is not strictly positive are omitted entirely, and rows
// with null or non-positive backers never contribute.
func (a *Analyzer) avgFundingPerBacker(rows []map[string]interface{}, groupCol, groupType, singleCategory string, allCategories bool) AvgFundingPayload {
	payload := AvgFundingPayload{GroupType: groupType, Data: []TrendingItem{}}
	if !a.schema.Has(ColBackers) {
		level.Warn(a.logger).Log("msg", "average funding per backer unavailable, column missing", "column", ColBackers)
		return payload
	}
	if groupCol == "" {
		level.Warn(a.logger).Log("msg", "average funding per backer unavailable, no grouping column")
		return payload
	}

	type sums struct{ pledged, backers float64 }
	perGroup := make(map[string]*sums)
	for _, row := range rows {
		backers, ok := fieldFloat(row, ColBackers)
		if !ok || backers <= 0 {
			continue
		}
		group, ok := fieldString(row, groupCol)
		if !ok || group == "" {
			continue
		}
		pledged, ok := fieldFloat(row, ColPledged)
		if !ok {
			continue
		}
		s, exists := perGroup[group]
		if !exists {
			s = &sums{}
			perGroup[group] = s
		}
		s.pledged += pledged
		s.backers += backers
	}

	for group, s := range perGroup {
		if s.backers <= 0 {
			continue
		}
		if groupType == GroupTypeSubcategory && group == singleCategory {
			continue
		}
		if a.skipUnknownCategory(group, groupType, allCategories) {
			continue
		}
		payload.Data = append(payload.Data, TrendingItem{Name: group, Value: s.pledged / s.backers})
	}
	sort.Slice(payload.Data, func(i, j int) bool { return payload.Data[i].Name < payload.Data[j].Name })
	return payload
}

// topFunded ranks the five highest-pledged campaigns whose launch or
// deadline falls inside the current window (every campaign under All
// Time), denormalized for display.
func (a *Analyzer) topFunded(base []map[string]interface{}, windows Windows, singleCategory string) TopFundedPayload {
	payload := TopFundedPayload{Rows: []TopFundedEntry{}, GroupLabel: "Category"}

	if !a.schema.Has(ColLaunched) || !a.schema.Has(ColDeadline) || !a.schema.Has(ColPledged) {
		level.Warn(a.logger).Log("msg", "top funded unavailable, required columns missing")
		return payload
	}

	groupCol := ColCategory
	if singleCategory != "" && a.schema.Has(ColSubcategory) {
		groupCol = ColSubcategory
		payload.GroupLabel = "Subcategory"
	}

	type candidate struct {
		row     map[string]interface{}
		pledged float64
	}
	var candidates []candidate
	for _, row := range base {
		if !windows.AllTime {
			launched, lok := fieldTime(row, ColLaunched)
			deadline, dok := fieldTime(row, ColDeadline)
			inWindow := (lok && windows.Current.Contains(launched)) ||
				(dok && windows.Current.Contains(deadline))
			if !inWindow {
				continue
			}
		}
		pledged, ok := fieldFloat(row, ColPledged)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{row: row, pledged: pledged})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].pledged != candidates[j].pledged {
			return candidates[i].pledged > candidates[j].pledged
		}
		ni, _ := fieldString(candidates[i].row, ColProjectName)
		nj, _ := fieldString(candidates[j].row, ColProjectName)
		return ni < nj
	})
	if len(candidates) > topNLimit {
		candidates = candidates[:topNLimit]
	}

	for _, c := range candidates {
		name, _ := fieldString(c.row, ColProjectName)
		creator, _ := fieldString(c.row, ColCreator)
		group, _ := fieldString(c.row, groupCol)
		country, _ := fieldString(c.row, ColCountry)
		link, _ := fieldString(c.row, ColLink)
		payload.Rows = append(payload.Rows, TopFundedEntry{
			Name:    name,
			Creator: creator,
			Pledged: c.pledged,
			Group:   group,
			Country: country,
			Link:    link,
		})
	}
	return payload
}
