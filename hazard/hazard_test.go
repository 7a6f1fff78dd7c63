package hazard

import (
	"testing"

	"go.viam.com/test"
)

func TestTableFromLabels(t *testing.T) {
	table := TableFromLabels([]string{"animals", "humps", "pedestrian", "pothole", "roadworks"})
	test.That(t, table.Lookup("pedestrian"), test.ShouldEqual, Pedestrian)
	test.That(t, table.Lookup("animals"), test.ShouldEqual, Animal)
	test.That(t, table.Lookup("humps"), test.ShouldEqual, Hump)
	test.That(t, table.Lookup("roadworks"), test.ShouldEqual, RoadWork)
	test.That(t, table.Lookup("POTHOLE"), test.ShouldEqual, Pothole)
	test.That(t, table.Lookup("bicycle"), test.ShouldEqual, Unknown)
	test.That(t, table.Lookup(""), test.ShouldEqual, Unknown)
}

func TestTableVariantTaxonomy(t *testing.T) {
	// a four-class model variant without a separate hump class
	table := TableFromLabels([]string{"animal", "pedestrian", "pothole", "road_work"})
	test.That(t, table.Lookup("road_work"), test.ShouldEqual, RoadWork)
	test.That(t, table.Lookup("animal"), test.ShouldEqual, Animal)
	test.That(t, table.Lookup("humps"), test.ShouldEqual, Unknown)
}

func TestExplicitTable(t *testing.T) {
	table := NewTable(map[string]Category{"obstacle": Pothole})
	test.That(t, table.Lookup("Obstacle"), test.ShouldEqual, Pothole)
	test.That(t, table.Lookup("pothole"), test.ShouldEqual, Unknown)
}

func TestNilTable(t *testing.T) {
	var table *Table
	test.That(t, table.Lookup("pothole"), test.ShouldEqual, Unknown)
}

func TestCategoriesExcludeUnknown(t *testing.T) {
	for _, c := range Categories() {
		test.That(t, c, test.ShouldNotEqual, Unknown)
		test.That(t, c.String(), test.ShouldNotEqual, "unknown")
	}
}
