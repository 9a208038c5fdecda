package engine

import (
	"testing"
)

func stateRow(category, state string, pledged interface{}) map[string]interface{} {
	return map[string]interface{}{
		ColCategory: category,
		ColState:    state,
		ColPledged:  pledged,
	}
}

func TestAggregate_Ungrouped(t *testing.T) {
	rows := []map[string]interface{}{
		stateRow("Art", "successful", 100.0),
		stateRow("Art", "failed", 50.0),
		stateRow("Games", "successful", 200.0),
		stateRow("Games", "live", nil),
	}

	groups := Aggregate(rows, "")
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	g := groups[0]

	if g.TotalCampaigns != 4 {
		t.Errorf("TotalCampaigns = %d, want 4", g.TotalCampaigns)
	}
	if g.TotalPledged != 350 {
		t.Errorf("TotalPledged = %v, want 350", g.TotalPledged)
	}
	if g.Successful != 2 || g.Failed != 1 {
		t.Errorf("Successful/Failed = %d/%d, want 2/1", g.Successful, g.Failed)
	}
	if g.SuccessRate == nil {
		t.Fatalf("SuccessRate = nil, want defined")
	}
	// 2 of 3 decided campaigns succeeded. Computed from the counts at
	// runtime so the float rounding matches the implementation's.
	if want := float64(g.Successful) / float64(g.Successful+g.Failed) * 100; *g.SuccessRate != want {
		t.Errorf("SuccessRate = %v, want %v", *g.SuccessRate, want)
	}
}

func TestAggregate_UngroupedEmptyInput(t *testing.T) {
	groups := Aggregate(nil, "")
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want the single implicit group", len(groups))
	}
	g := groups[0]
	if g.TotalCampaigns != 0 || g.TotalPledged != 0 {
		t.Errorf("empty aggregate = %+v, want zero counts", g)
	}
	if g.SuccessRate != nil {
		t.Errorf("SuccessRate = %v, want nil with no decided campaigns", *g.SuccessRate)
	}
}

func TestAggregate_Grouped(t *testing.T) {
	rows := []map[string]interface{}{
		stateRow("Art", "successful", 100.0),
		stateRow("Games", "failed", 20.0),
		stateRow("Art", "failed", 30.0),
		stateRow("", "successful", 10.0),
		stateRow("Music", "live", nil),
	}
	rows = append(rows, map[string]interface{}{ColState: "successful", ColPledged: 5.0}) // no category

	groups := Aggregate(rows, ColCategory)

	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3 (empty and missing keys skipped)", len(groups))
	}

	// Sorted by name.
	wantNames := []string{"Art", "Games", "Music"}
	for i, name := range wantNames {
		if groups[i].Name != name {
			t.Errorf("groups[%d].Name = %q, want %q", i, groups[i].Name, name)
		}
	}

	art := groups[0]
	if art.TotalCampaigns != 2 || art.TotalPledged != 130 {
		t.Errorf("Art = %+v, want 2 campaigns, 130 pledged", art)
	}
	if art.SuccessRate == nil || *art.SuccessRate != 50 {
		t.Errorf("Art.SuccessRate = %v, want 50", art.SuccessRate)
	}

	music := groups[2]
	if music.SuccessRate != nil {
		t.Errorf("Music.SuccessRate = %v, want nil for an undecided group", *music.SuccessRate)
	}
}

func TestAggregate_StateCaseInsensitive(t *testing.T) {
	rows := []map[string]interface{}{
		stateRow("Art", "Successful", 1.0),
		stateRow("Art", "SUCCESSFUL", 1.0),
		stateRow("Art", "Failed", 1.0),
	}
	g := Aggregate(rows, "")[0]
	if g.Successful != 2 || g.Failed != 1 {
		t.Errorf("Successful/Failed = %d/%d, want 2/1", g.Successful, g.Failed)
	}
}

func TestAggregate_GroupedEmptyInput(t *testing.T) {
	groups := Aggregate(nil, ColCategory)
	if groups == nil {
		t.Fatalf("groups is nil, want empty slice")
	}
	if len(groups) != 0 {
		t.Errorf("len(groups) = %d, want 0", len(groups))
	}
}
