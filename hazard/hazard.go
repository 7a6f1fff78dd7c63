// Package hazard defines the closed set of road hazard categories the
// pipeline can announce, and the per-model label table that maps raw model
// labels onto them.
package hazard

import "strings"

// Category is one kind of road hazard. The set is closed; labels a model
// emits that do not correspond to any category land in Unknown.
type Category int

// The recognized hazard categories.
const (
	Unknown Category = iota
	Pedestrian
	Pothole
	Hump
	Animal
	RoadWork
)

// Categories lists every recognized category, excluding Unknown.
func Categories() []Category {
	return []Category{Pedestrian, Pothole, Hump, Animal, RoadWork}
}

func (c Category) String() string {
	switch c {
	case Pedestrian:
		return "pedestrian"
	case Pothole:
		return "pothole"
	case Hump:
		return "hump"
	case Animal:
		return "animal"
	case RoadWork:
		return "road_work"
	default:
		return "unknown"
	}
}

// aliases covers the label spellings seen across deployed model variants.
var aliases = map[string]Category{
	"pedestrian": Pedestrian,
	"person":     Pedestrian,
	"pothole":    Pothole,
	"potholes":   Pothole,
	"hump":       Hump,
	"humps":      Hump,
	"speedbump":  Hump,
	"animal":     Animal,
	"animals":    Animal,
	"roadwork":   RoadWork,
	"roadworks":  RoadWork,
	"road_work":  RoadWork,
}

// Table maps a loaded model's label strings to hazard categories. The
// taxonomy differs between model variants, so the table is built from the
// model's own label list rather than compiled in.
type Table struct {
	byLabel map[string]Category
}

// NewTable builds a table from an explicit label to category mapping.
func NewTable(mapping map[string]Category) *Table {
	byLabel := make(map[string]Category, len(mapping))
	for label, c := range mapping {
		byLabel[normalize(label)] = c
	}
	return &Table{byLabel: byLabel}
}

// TableFromLabels builds a table from a model's ordered label list, matching
// each label against the known alias spellings. Labels that match nothing
// resolve to Unknown at lookup time.
func TableFromLabels(labels []string) *Table {
	byLabel := make(map[string]Category, len(labels))
	for _, label := range labels {
		if c, ok := aliases[normalize(label)]; ok {
			byLabel[normalize(label)] = c
		}
	}
	return &Table{byLabel: byLabel}
}

// Lookup resolves a raw model label to its category, or Unknown.
func (t *Table) Lookup(label string) Category {
	if t == nil {
		return Unknown
	}
	if c, ok := t.byLabel[normalize(label)]; ok {
		return c
	}
	return Unknown
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
