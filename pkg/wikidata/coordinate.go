package wikidata

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// GlobeCoordinate is a position on a globe (Earth unless Globe says otherwise).
// Older records may leave precision null; HasPrecision tells the two apart.
type GlobeCoordinate struct {
	Latitude     float64
	Longitude    float64
	Precision    float64
	HasPrecision bool
	Globe        EntityID
}

// Datatype implements Value.
func (GlobeCoordinate) Datatype() Datatype { return DatatypeGlobeCoordinate }
func (GlobeCoordinate) isValue()           {}

// Point returns the coordinate as an orb.Point (longitude, latitude).
func (c GlobeCoordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// DistanceTo returns the haversine distance in metres on an Earth-sized sphere.
// ok is false when the two coordinates are on different globes.
func (c GlobeCoordinate) DistanceTo(o GlobeCoordinate) (meters float64, ok bool) {
	if c.Globe != o.Globe {
		return 0, false
	}
	return geo.DistanceHaversine(c.Point(), o.Point()), true
}

func validLatitude(v float64) bool  { return v >= -90 && v <= 90 }
func validLongitude(v float64) bool { return v >= -360 && v <= 360 }
