package engine

// Column names of the campaign dataset. The reader exposes rows keyed by
// these names; every engine rule checks column presence via the schema
// before touching a column so partially populated sources degrade
// gracefully instead of failing.
const (
	ColProjectName = "Project Name"
	ColCreator     = "Creator"
	ColCategory    = "Category"
	ColSubcategory = "Subcategory"
	ColCountry     = "Country"
	ColState       = "State"
	ColPledged     = "Raw Pledged"
	ColGoal        = "Raw Goal"
	ColRaised      = "Raw Raised"
	ColLaunched    = "Raw Date"
	ColDeadline    = "Raw Deadline"
	ColBackers     = "Backer Count"
	ColPopularity  = "Popularity Score"
	ColLink        = "Link"
)

// searchColumns are matched (OR-combined) by the free-text search rule.
var searchColumns = []string{ColProjectName, ColCreator, ColCategory, ColSubcategory}

// Sentinel values meaning "no restriction" for the multi-select facets.
const (
	AllCategories    = "All Categories"
	AllSubcategories = "All Subcategories"
	AllCountries     = "All Countries"
	AllStates        = "All States"
)

// StateSuccessful and StateFailed are the campaign outcome states the
// aggregator counts; comparison is case-insensitive.
const (
	StateSuccessful = "successful"
	StateFailed     = "failed"
)
