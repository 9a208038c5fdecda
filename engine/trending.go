package engine

import "sort"

// TrendDirection selects how a trending list is ranked.
type TrendDirection string

const (
	// Change-mode directions: partition by sign of the change.
	TrendGrowth  TrendDirection = "Growth"
	TrendDecline TrendDirection = "Decline"
	// Value-mode directions: rank the raw current values.
	TrendTop    TrendDirection = "Top"
	TrendBottom TrendDirection = "Bottom"
)

// trendLimit caps every ranked trending list.
const trendLimit = 5

// topNLimit caps the top-funded and top-locations rankings.
const topNLimit = 5

// neutralThreshold is the change magnitude below which an item counts as
// neutral and is excluded from both growth and decline rankings.
const neutralThreshold = 0.01

// SelectTrending extracts a ranked list from trending items.
//
// Growth keeps positive changes sorted descending; Decline keeps negative
// changes sorted ascending (steepest decline first); both ignore neutral
// items. Top and Bottom rank the raw values descending respectively
// ascending. Every result is capped at five entries, with name as the tie
// break so equal values rank deterministically.
func SelectTrending(items []TrendingItem, direction TrendDirection) []TrendingItem {
	selected := make([]TrendingItem, 0, len(items))
	for _, item := range items {
		switch direction {
		case TrendGrowth:
			if item.Value >= neutralThreshold {
				selected = append(selected, item)
			}
		case TrendDecline:
			if item.Value <= -neutralThreshold {
				selected = append(selected, item)
			}
		default:
			selected = append(selected, item)
		}
	}

	ascending := direction == TrendDecline || direction == TrendBottom
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Value != selected[j].Value {
			if ascending {
				return selected[i].Value < selected[j].Value
			}
			return selected[i].Value > selected[j].Value
		}
		return selected[i].Name < selected[j].Name
	})

	if len(selected) > trendLimit {
		selected = selected[:trendLimit]
	}
	return selected
}
