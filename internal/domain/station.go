package domain

import "strings"

// Category is the normalized classification of a feed parameter.
type Category string

const (
	CategoryTemperature Category = "temperature"
	CategoryDischarge   Category = "discharge"
	CategoryLevel       Category = "level"
)

// categoryTable maps the lower-cased first word of a feed parameter name
// ("Wassertemperatur", "Abfluss m3/s", "Pegel m ü. M.") to its category.
var categoryTable = map[string]Category{
	"wassertemperatur": CategoryTemperature,
	"abfluss":          CategoryDischarge,
	"pegel":            CategoryLevel,
}

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{CategoryTemperature, CategoryDischarge, CategoryLevel}
}

// CategoryFor derives the category of a raw parameter name. Unknown names
// report false; they are never defaulted.
func CategoryFor(name string) (Category, bool) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", false
	}
	c, ok := categoryTable[strings.ToLower(fields[0])]
	return c, ok
}

// ParseCategory accepts an already normalized category name.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryTemperature, CategoryDischarge, CategoryLevel:
		return c, true
	}
	return "", false
}

// ParameterReading is the latest measurement of one parameter together with
// the rolling statistics delivered by the feed.
type ParameterReading struct {
	Unit        string `json:"unit"`
	Datetime    string `json:"datetime"` // feed-native, passed through unparsed
	Value       Value  `json:"value"`
	Previous24h Value  `json:"previous-24h"`
	Delta24h    Value  `json:"delta-24h"`
	Max24h      Value  `json:"max-24h"`
	Mean24h     Value  `json:"mean-24h"`
	Min24h      Value  `json:"min-24h"`
	Max1h       Value  `json:"max-1h"`
	Mean1h      Value  `json:"mean-1h"`
	Min1h       Value  `json:"min-1h"`
}

// Station is one monitoring location. Parameters is never nil.
type Station struct {
	ID            string                        `json:"-"`
	Name          string                        `json:"name"`
	WaterBodyName string                        `json:"water-body-name"`
	WaterBodyType string                        `json:"water-body-type"`
	Coordinates   GeoPoint                      `json:"coordinates"`
	Parameters    map[Category]ParameterReading `json:"parameters"`
}

// Summary projects the station into its listing form.
func (s Station) Summary() StationSummary {
	return StationSummary{
		ID:            s.ID,
		Name:          s.Name,
		WaterBodyName: s.WaterBodyName,
		WaterBodyType: s.WaterBodyType,
	}
}

// StationSummary is one entry of station_list.json.
type StationSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WaterBodyName string `json:"water-body-name"`
	WaterBodyType string `json:"water-body-type"`
}
