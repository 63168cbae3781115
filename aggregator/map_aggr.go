package aggregator

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"municipal-sentinel/models"
)

// ViewPort is the dashboard map viewport in degrees.
type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

type Point struct {
	Lat float64
	Lon float64
}

func (vp *ViewPort) Center() Point {
	return Point{
		Lat: (vp.LatMin + vp.LatMax) / 2.0,
		Lon: (vp.LonMin + vp.LonMax) / 2.0,
	}
}

func (vp *ViewPort) Contains(lat, lon float64) bool {
	return lat >= vp.LatMin && lat <= vp.LatMax && lon >= vp.LonMin && lon <= vp.LonMax
}

// MapResult is an aggregated marker for the dashboard heatmap.
type MapResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int64   `json:"count"`
}

type aggrUnit struct {
	cnt      int64
	origCell s2.CellID
}

// MapAggregator buckets report locations into S2 cells sized to the
// viewport, so a zoomed-out dashboard gets clustered counts instead of
// thousands of individual markers.
type MapAggregator struct {
	level int
	aggrs map[s2.CellID]*aggrUnit
}

const (
	expectedCells = 160
	minLevel      = 6
	maxLevel      = 16
)

func cellBaseLevel(vp *ViewPort, center Point) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{
			Lo: minLL.Lat.Radians(),
			Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{
			Lo: minLL.Lng.Radians(),
			Hi: maxLL.Lng.Radians()},
	}

	vpArea := rect.Area()

	centerLL := s2.CellIDFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lon))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(centerLL.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel // Large enough level
}

func NewMapAggregator(vp *ViewPort) MapAggregator {
	lv := cellBaseLevel(vp, vp.Center())
	return MapAggregator{
		level: lv,
		aggrs: make(map[s2.CellID]*aggrUnit),
	}
}

func (a *MapAggregator) AddPoint(lat, lon float64) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
	parent := pc.Parent(a.level)
	if _, ok := a.aggrs[parent]; !ok {
		a.aggrs[parent] = &aggrUnit{}
	}
	a.aggrs[parent].cnt += 1
	a.aggrs[parent].origCell = pc
}

func (a *MapAggregator) ToArray() []MapResult {
	r := make([]MapResult, 0, len(a.aggrs))
	for c, unit := range a.aggrs {
		ll := c.LatLng()
		// A lone report keeps its exact location on the map.
		if unit.cnt == 1 {
			ll = unit.origCell.LatLng()
		}
		r = append(r, MapResult{
			Latitude:  ll.Lat.Degrees(),
			Longitude: ll.Lng.Degrees(),
			Count:     unit.cnt,
		})
	}
	return r
}

// AggregateMap buckets the reports inside the viewport into S2 cells.
func AggregateMap(reports []models.Report, vp *ViewPort) []MapResult {
	a := NewMapAggregator(vp)
	for _, r := range reports {
		if vp.Contains(r.Latitude, r.Longitude) {
			a.AddPoint(r.Latitude, r.Longitude)
		}
	}
	return a.ToArray()
}
