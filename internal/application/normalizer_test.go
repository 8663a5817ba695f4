package application

import (
	"math"
	"testing"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

func f64(v float64) *float64 { return &v }

func node(id int64, lat, lon float64, tags map[string]string) domain.RawElement {
	return domain.RawElement{Type: "node", ID: id, Lat: f64(lat), Lon: f64(lon), Tags: tags}
}

func TestNormalize_DistancesAndOrder(t *testing.T) {
	elements := []domain.RawElement{
		node(3, 40.7650, -73.9855, map[string]string{"name": "Far"}),
		node(1, 40.7589, -73.9851, map[string]string{"name": "Near"}),
		{Type: "way", ID: 2, Center: &domain.LatLon{Lat: f64(40.7600), Lon: f64(-73.9855)}, Tags: map[string]string{"name": "Middle"}},
	}

	got := Normalize(elements, timesSquare, 5000, "cafe", domain.AccessibilityFilter{}, 10)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	wantNames := []string{"Near", "Middle", "Far"}
	wantDist := []int{106, 222, 778}
	for i := range got {
		if got[i].Name != wantNames[i] || got[i].DistanceM != wantDist[i] {
			t.Errorf("result %d = %s@%d, want %s@%d", i, got[i].Name, got[i].DistanceM, wantNames[i], wantDist[i])
		}
	}
	if got[1].OSMType != domain.OSMWay || got[1].Category != "cafe" {
		t.Errorf("way result = %+v", got[1])
	}
}

func TestNormalize_TieBreaks(t *testing.T) {
	elements := []domain.RawElement{
		{Type: "relation", ID: 7, Center: &domain.LatLon{Lat: f64(40.7600), Lon: f64(-73.9855)}},
		{Type: "way", ID: 7, Center: &domain.LatLon{Lat: f64(40.7600), Lon: f64(-73.9855)}},
		node(7, 40.7600, -73.9855, nil),
		node(5, 40.7600, -73.9855, nil),
	}

	got := Normalize(elements, timesSquare, 5000, "cafe", domain.AccessibilityFilter{}, 10)
	want := []struct {
		id   int64
		kind domain.OSMType
	}{{5, domain.OSMNode}, {7, domain.OSMNode}, {7, domain.OSMWay}, {7, domain.OSMRelation}}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].OSMID != w.id || got[i].OSMType != w.kind {
			t.Errorf("result %d = %s:%d, want %s:%d", i, got[i].OSMType, got[i].OSMID, w.kind, w.id)
		}
	}
}

func TestNormalize_DropsInvalidElements(t *testing.T) {
	elements := []domain.RawElement{
		node(1, 40.7589, -73.9851, nil),
		node(1, 40.7589, -73.9851, nil), // duplicate
		{Type: "area", ID: 2, Lat: f64(40.76), Lon: f64(-73.98)},
		node(0, 40.76, -73.98, nil),
		{Type: "node", ID: 3, Lat: f64(40.76)},
		node(4, 95, -73.98, nil),
		{Type: "way", ID: 5},
		{Type: "way", ID: 6, Bounds: &domain.Bounds{MinLat: 40.7590, MinLon: -73.9860, MaxLat: 40.7610, MaxLon: -73.9850}},
	}

	got := Normalize(elements, timesSquare, 5000, "cafe", domain.AccessibilityFilter{}, 10)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(got), got)
	}
	if got[1].OSMID != 6 || math.Abs(got[1].Lat-40.76) > 1e-9 || math.Abs(got[1].Lon+73.9855) > 1e-9 {
		t.Errorf("bounds midpoint = %+v", got[1])
	}
}

func TestNormalize_Truncates(t *testing.T) {
	var elements []domain.RawElement
	for i := int64(1); i <= 12; i++ {
		elements = append(elements, node(i, 40.7580+float64(i)*0.0001, -73.9855, nil))
	}
	got := Normalize(elements, timesSquare, 5000, "cafe", domain.AccessibilityFilter{}, 5)
	if len(got) != 5 {
		t.Fatalf("got %d results, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceM < got[i-1].DistanceM {
			t.Errorf("distances not non-decreasing at %d", i)
		}
	}
}

func TestNormalize_Extraction(t *testing.T) {
	elements := []domain.RawElement{
		node(1, 40.7589, -73.9851, map[string]string{
			"brand":                     "Blue Bottle",
			"wheelchair":                " Designated ",
			"wheelchair:description:en": "Ramp at side door",
			"toilets:wheelchair":        "YES",
			"entrance:step_count":       "0",
			"addr:street":               "7th Avenue",
			"addr:housenumber":          "1500",
			"addr:city":                 "New York",
		}),
		node(2, 40.7600, -73.9855, map[string]string{
			"wheelchair": "sometimes",
			"step_free":  "false",
			"step_count": "0",
			"addr:city":  "New York",
		}),
	}

	got := Normalize(elements, timesSquare, 5000, "cafe", domain.AccessibilityFilter{}, 10)
	if len(got) != 2 {
		t.Fatalf("got %d results", len(got))
	}

	a := got[0]
	if a.Name != "Blue Bottle" || a.Address != "7th Avenue, 1500, New York" {
		t.Errorf("name/address = %q / %q", a.Name, a.Address)
	}
	if a.Wheelchair == nil || *a.Wheelchair != domain.WheelchairYes {
		t.Errorf("wheelchair = %v", a.Wheelchair)
	}
	if a.WheelchairDescription == nil || *a.WheelchairDescription != "Ramp at side door" {
		t.Errorf("description = %v", a.WheelchairDescription)
	}
	if a.ToiletsWheelchair == nil || *a.ToiletsWheelchair != domain.ToiletsYes {
		t.Errorf("toilets = %v", a.ToiletsWheelchair)
	}
	if a.StepFree == nil || !*a.StepFree {
		t.Errorf("step_free = %v", a.StepFree)
	}

	b := got[1]
	if b.Name != "cafe (node:2)" || b.Address != "New York" {
		t.Errorf("fallback name/address = %q / %q", b.Name, b.Address)
	}
	if b.Wheelchair != nil || b.ToiletsWheelchair != nil || b.WheelchairDescription != nil {
		t.Errorf("unrecognised values should be unset: %+v", b)
	}
	if b.StepFree == nil || *b.StepFree {
		t.Errorf("explicit step_free=false should win over step_count: %v", b.StepFree)
	}
}

func TestNormalize_FilterPolicy(t *testing.T) {
	elements := []domain.RawElement{
		node(1, 40.7589, -73.9851, map[string]string{"wheelchair": "yes", "step_free": "yes"}),
		node(2, 40.7600, -73.9855, map[string]string{"wheelchair": "no", "step_count": "3"}),
		node(3, 40.7620, -73.9855, map[string]string{"wheelchair": "unknown"}),
		node(4, 40.7650, -73.9855, map[string]string{"toilets:wheelchair": "no"}),
	}

	ids := func(rs []domain.PlaceResult) []int64 {
		out := make([]int64, len(rs))
		for i, r := range rs {
			out[i] = r.OSMID
		}
		return out
	}

	tests := []struct {
		name   string
		filter domain.AccessibilityFilter
		want   []int64
	}{
		{"none", domain.AccessibilityFilter{}, []int64{1, 2, 3, 4}},
		{"wheelchair yes", domain.AccessibilityFilter{Wheelchair: wheelchair(domain.WheelchairYes)}, []int64{1}},
		{"wheelchair limited", domain.AccessibilityFilter{Wheelchair: wheelchair(domain.WheelchairLimited)}, []int64{}},
		{"wheelchair unknown", domain.AccessibilityFilter{Wheelchair: wheelchair(domain.WheelchairUnknown)}, []int64{3, 4}},
		{"toilets no", domain.AccessibilityFilter{ToiletsWheelchair: toilets(domain.ToiletsNo)}, []int64{4}},
		{"toilets unknown", domain.AccessibilityFilter{ToiletsWheelchair: toilets(domain.ToiletsUnknown)}, []int64{1, 2, 3}},
		{"step free", domain.AccessibilityFilter{StepFree: boolPtr(true)}, []int64{1}},
		{"not step free", domain.AccessibilityFilter{StepFree: boolPtr(false)}, []int64{2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Normalize(elements, timesSquare, 5000, "cafe", tt.filter, 10))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	elements := []domain.RawElement{node(2, 40.7650, -73.9855, nil), node(1, 40.7589, -73.9851, nil)}
	_ = Normalize(elements, timesSquare, 5000, "cafe", domain.AccessibilityFilter{}, 1)
	if elements[0].ID != 2 || elements[1].ID != 1 {
		t.Error("input slice reordered")
	}
}

func TestNormalize_DropsOutsideRadius(t *testing.T) {
	elements := []domain.RawElement{
		node(1, 40.7589, -73.9851, nil), // 106 m
		node(2, 40.7650, -73.9855, nil), // 778 m
		node(3, 40.7700, -73.9855, nil), // 1334 m
	}
	got := Normalize(elements, timesSquare, 800, "cafe", domain.AccessibilityFilter{}, 10)
	if len(got) != 2 || got[1].OSMID != 2 {
		t.Errorf("got %+v, want ids 1 and 2", got)
	}
	if got := Normalize(elements, timesSquare, 106, "cafe", domain.AccessibilityFilter{}, 10); len(got) != 1 {
		t.Errorf("boundary distance should be kept, got %d results", len(got))
	}
}
