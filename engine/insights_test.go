package engine

import (
	"testing"
	"time"
)

// insightRow builds a fully populated campaign row deadlining on the given
// day.
func insightRow(name, category, subcategory, country, state string, goal, pledged, backers float64, deadline time.Time) map[string]interface{} {
	return map[string]interface{}{
		ColProjectName: name,
		ColCreator:     "creator of " + name,
		ColCategory:    category,
		ColSubcategory: subcategory,
		ColCountry:     country,
		ColState:       state,
		ColGoal:        goal,
		ColPledged:     pledged,
		ColBackers:     backers,
		ColLaunched:    deadline.AddDate(0, -1, 0),
		ColDeadline:    deadline,
		ColLink:        "https://example.com/" + name,
	}
}

func newTestAnalyzer(t *testing.T, categories ...string) *Analyzer {
	t.Helper()
	return NewAnalyzer(testSchema(t), categories, nil)
}

func TestGoalDistribution(t *testing.T) {
	a := newTestAnalyzer(t)
	rows := []map[string]interface{}{
		{ColGoal: 500.0},
		{ColGoal: 1_500.0},
		{ColGoal: 50_000.0},
		{ColGoal: 2_000_000.0},
		{ColGoal: 0.0},     // non-positive goals are skipped
		{ColGoal: -100.0},  // ditto
		{ColGoal: nil},     // nulls are skipped
		{ColState: "live"}, // missing goal is skipped
	}

	bins := a.goalDistribution(rows)

	wantLabels := []string{"<$1k", "$1k-$10k", "$10k-$100k", "$100k-$1m", ">$1m"}
	wantCounts := []int64{1, 1, 1, 0, 1}
	if len(bins) != len(wantLabels) {
		t.Fatalf("len(bins) = %d, want %d", len(bins), len(wantLabels))
	}
	for i := range bins {
		if bins[i].Label != wantLabels[i] {
			t.Errorf("bins[%d].Label = %q, want %q", i, bins[i].Label, wantLabels[i])
		}
		if bins[i].Count != wantCounts[i] {
			t.Errorf("bins[%d] (%s) count = %d, want %d", i, wantLabels[i], bins[i].Count, wantCounts[i])
		}
	}
}

func TestGoalDistribution_BinEdges(t *testing.T) {
	a := newTestAnalyzer(t)
	tests := []struct {
		goal float64
		bin  string
	}{
		{999.99, "<$1k"},
		{1_000, "$1k-$10k"},
		{9_999.99, "$1k-$10k"},
		{10_000, "$10k-$100k"},
		{100_000, "$100k-$1m"},
		{1_000_000, ">$1m"},
	}

	for _, tt := range tests {
		bins := a.goalDistribution([]map[string]interface{}{{ColGoal: tt.goal}})
		for _, b := range bins {
			want := int64(0)
			if b.Label == tt.bin {
				want = 1
			}
			if b.Count != want {
				t.Errorf("goal %v: bin %q count = %d, want %d", tt.goal, b.Label, b.Count, want)
			}
		}
	}
}

func TestInsights_PeriodComparison(t *testing.T) {
	a := newTestAnalyzer(t, "Art", "Games")
	anchor := date(2024, time.June, 1)

	cur := date(2024, time.May, 15)  // inside [2024-05-01, 2024-06-01)
	prev := date(2024, time.April, 15) // inside [2024-04-01, 2024-05-01)
	old := date(2023, time.January, 10)

	src := SliceSource{
		insightRow("a1", "Art", "Painting", "US", "successful", 500, 1000, 20, cur),
		insightRow("a2", "Art", "Sculpture", "US", "failed", 2000, 100, 2, cur),
		insightRow("a3", "Art", "Painting", "GB", "successful", 800, 2400, 30, prev),
		insightRow("g1", "Games", "Tabletop", "DE", "successful", 5000, 9000, 100, cur),
		insightRow("g2", "Games", "Video", "US", "failed", 9000, 50, 1, prev),
		insightRow("g3", "Games", "Tabletop", "US", "successful", 100, 300, 4, old),
	}

	res, err := a.Insights(src, InsightsRequest{Date: RangeLastMonth}, anchor)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}

	total := res.Metrics[MetricTotalCampaigns]
	if total.Current == nil || *total.Current != 3 {
		t.Errorf("current total campaigns = %v, want 3", total.Current)
	}
	if total.Previous == nil || *total.Previous != 2 {
		t.Errorf("previous total campaigns = %v, want 2", total.Previous)
	}
	if total.ChangePct == nil || *total.ChangePct != 50 {
		t.Errorf("total campaigns change = %v, want 50", total.ChangePct)
	}

	if res.Trending.Mode != "change" {
		t.Errorf("trending mode = %q, want change", res.Trending.Mode)
	}
	if res.Trending.GroupType != GroupTypeCategory {
		t.Errorf("trending group type = %q, want category", res.Trending.GroupType)
	}

	// Top locations count only the current window: US 2, DE 1.
	wantLoc := []LocationCount{{Name: "US", Count: 2}, {Name: "DE", Count: 1}}
	if len(res.TopLocations) != len(wantLoc) {
		t.Fatalf("TopLocations = %v, want %v", res.TopLocations, wantLoc)
	}
	for i, want := range wantLoc {
		if res.TopLocations[i] != want {
			t.Errorf("TopLocations[%d] = %v, want %v", i, res.TopLocations[i], want)
		}
	}

	// Top funded ranks current-window campaigns by pledged.
	if len(res.TopFunded.Rows) != 3 {
		t.Fatalf("len(TopFunded.Rows) = %d, want 3", len(res.TopFunded.Rows))
	}
	if res.TopFunded.Rows[0].Name != "g1" || res.TopFunded.Rows[0].Pledged != 9000 {
		t.Errorf("top funded = %+v, want g1 at 9000", res.TopFunded.Rows[0])
	}
	if res.TopFunded.GroupLabel != "Category" {
		t.Errorf("GroupLabel = %q, want Category", res.TopFunded.GroupLabel)
	}
}

func TestInsights_AllTime(t *testing.T) {
	a := newTestAnalyzer(t, "Art")
	anchor := date(2024, time.June, 1)

	src := SliceSource{
		insightRow("a1", "Art", "Painting", "US", "successful", 500, 1000, 20, date(2024, time.May, 15)),
		insightRow("a2", "Art", "Painting", "US", "failed", 500, 10, 1, date(2020, time.May, 15)),
	}

	res, err := a.Insights(src, InsightsRequest{Date: RangeAllTime}, anchor)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}

	total := res.Metrics[MetricTotalCampaigns]
	if total.Current == nil || *total.Current != 2 {
		t.Errorf("current total campaigns = %v, want 2", total.Current)
	}
	if total.Previous != nil {
		t.Errorf("previous = %v, want nil under all time", *total.Previous)
	}
	if total.ChangePct != nil {
		t.Errorf("change = %v, want nil under all time", *total.ChangePct)
	}
	if res.Trending.Mode != "value" {
		t.Errorf("trending mode = %q, want value", res.Trending.Mode)
	}

	// Value mode carries the raw aggregates.
	items := res.Trending.Data[MetricTotalCampaigns]
	if len(items) != 1 || items[0].Name != "Art" || items[0].Value != 2 {
		t.Errorf("trending data = %v, want [{Art 2}]", items)
	}
}

func TestInsights_SingleCategoryGroupsBySubcategory(t *testing.T) {
	a := newTestAnalyzer(t, "Art", "Games")
	anchor := date(2024, time.June, 1)
	cur := date(2024, time.May, 15)

	src := SliceSource{
		insightRow("a1", "Art", "Painting", "US", "successful", 500, 1000, 20, cur),
		insightRow("a2", "Art", "Sculpture", "US", "failed", 500, 100, 2, cur),
		// The parent category appearing as its own subcategory is excluded.
		insightRow("a3", "Art", "Art", "US", "successful", 500, 700, 7, cur),
		insightRow("g1", "Games", "Tabletop", "US", "successful", 500, 400, 4, cur),
	}

	res, err := a.Insights(src, InsightsRequest{Categories: []string{"Art"}, Date: RangeAllTime}, anchor)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}

	if res.Trending.GroupType != GroupTypeSubcategory {
		t.Errorf("group type = %q, want subcategory", res.Trending.GroupType)
	}
	if res.TopFunded.GroupLabel != "Subcategory" {
		t.Errorf("GroupLabel = %q, want Subcategory", res.TopFunded.GroupLabel)
	}

	// Only Art rows count, grouped by subcategory, parent row excluded.
	total := res.Metrics[MetricTotalCampaigns]
	if total.Current == nil || *total.Current != 3 {
		t.Errorf("current total campaigns = %v, want 3", total.Current)
	}
	items := res.Trending.Data[MetricTotalCampaigns]
	gotNames := names(items)
	want := map[string]bool{"Painting": true, "Sculpture": true}
	if len(gotNames) != 2 || !want[gotNames[0]] || !want[gotNames[1]] {
		t.Errorf("trending groups = %v, want Painting and Sculpture only", gotNames)
	}
}

func TestInsights_UnknownCategoriesExcludedFromRankings(t *testing.T) {
	a := newTestAnalyzer(t, "Art")
	anchor := date(2024, time.June, 1)
	cur := date(2024, time.May, 15)

	src := SliceSource{
		insightRow("a1", "Art", "Painting", "US", "successful", 500, 1000, 20, cur),
		insightRow("x1", "NotAFacet", "Misc", "US", "successful", 500, 900, 9, cur),
	}

	res, err := a.Insights(src, InsightsRequest{Date: RangeAllTime}, anchor)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}

	for _, item := range res.Trending.Data[MetricTotalCampaigns] {
		if item.Name == "NotAFacet" {
			t.Errorf("unknown category leaked into trending: %v", item)
		}
	}
	for _, item := range res.AvgFundingPerBacker.Data {
		if item.Name == "NotAFacet" {
			t.Errorf("unknown category leaked into avg funding: %v", item)
		}
	}

	// The headline metrics still count every row.
	total := res.Metrics[MetricTotalCampaigns]
	if total.Current == nil || *total.Current != 2 {
		t.Errorf("current total campaigns = %v, want 2", total.Current)
	}
}

func TestAvgFundingPerBacker(t *testing.T) {
	a := newTestAnalyzer(t)
	rows := []map[string]interface{}{
		{ColCategory: "Art", ColPledged: 1000.0, ColBackers: 20.0},
		{ColCategory: "Art", ColPledged: 500.0, ColBackers: 5.0},
		{ColCategory: "Games", ColPledged: 900.0, ColBackers: 0.0},  // zero backers excluded
		{ColCategory: "Music", ColPledged: 300.0, ColBackers: nil},  // null backers excluded
		{ColCategory: "Film", ColPledged: 80.0, ColBackers: 4.0},
	}

	payload := a.avgFundingPerBacker(rows, ColCategory, GroupTypeCategory, "", false)

	// Sorted by group name; Games and Music never accumulate.
	if len(payload.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2: %v", len(payload.Data), payload.Data)
	}
	if payload.Data[0].Name != "Art" || payload.Data[0].Value != 60 {
		t.Errorf("Data[0] = %v, want Art at 1500/25 = 60", payload.Data[0])
	}
	if payload.Data[1].Name != "Film" || payload.Data[1].Value != 20 {
		t.Errorf("Data[1] = %v, want Film at 20", payload.Data[1])
	}
}

func TestTopLocations_CapAndTieBreak(t *testing.T) {
	a := newTestAnalyzer(t)
	var rows []map[string]interface{}
	add := func(country string, n int) {
		for i := 0; i < n; i++ {
			rows = append(rows, map[string]interface{}{ColCountry: country})
		}
	}
	add("US", 5)
	add("GB", 3)
	add("DE", 3)
	add("FR", 2)
	add("JP", 1)
	add("CA", 1)
	rows = append(rows, map[string]interface{}{ColCountry: nil})

	got := a.topLocations(rows)

	want := []LocationCount{
		{Name: "US", Count: 5},
		{Name: "DE", Count: 3}, // ties break alphabetically
		{Name: "GB", Count: 3},
		{Name: "FR", Count: 2},
		{Name: "CA", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("topLocations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topLocations[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
