// Package geo does spherical great-circle geometry for placing events,
// stations and ray points on the surface.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
)

var ErrCoord = errors.New("geo: invalid coordinate")

// Coord is a surface point. Latitude is positive north and longitude
// positive east.
type Coord struct {
	Lat unit.Angle
	Lon unit.Angle
}

// NewCoord builds a Coord from degrees.
func NewCoord(latDeg, lonDeg float64) Coord {
	return Coord{Lat: unit.AngleFromDeg(latDeg), Lon: unit.AngleFromDeg(lonDeg)}
}

// Validate rejects latitudes beyond the poles and non-finite values.
func (c Coord) Validate() error {
	lat, lon := c.Lat.Deg(), c.Lon.Deg()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lon, 0) || math.Abs(lat) > 90 {
		return fmt.Errorf("%w: lat %v lon %v", ErrCoord, lat, lon)
	}
	return nil
}

func (c Coord) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat.Deg(), normalizeLon(c.Lon).Deg())
}

// Distance returns the great-circle angle between a and b. Longitudes are
// brought within half a turn of each other first so short paths across the
// antimeridian stay short.
func Distance(a, b Coord) unit.Angle {
	d := angle.SepHav(a.Lon, a.Lat, a.Lon+normalizeLon(b.Lon-a.Lon), b.Lat)
	if math.IsNaN(d.Rad()) {
		// haversine rounds past one at the antipode
		return unit.Angle(math.Pi)
	}
	return d
}

// Azimuth returns the initial bearing from a towards b, clockwise from north
// in [0, 2π). It is the position angle of b measured at a.
func Azimuth(a, b Coord) unit.Angle {
	return angle.RelativePosition(b.Lon, b.Lat, a.Lon, a.Lat).Mod1()
}

// Destination returns the point reached by travelling dist along the great
// circle leaving from in direction azimuth.
func Destination(from Coord, azimuth, dist unit.Angle) Coord {
	sinLat1, cosLat1 := from.Lat.Sincos()
	sinD, cosD := dist.Sincos()
	sinAz, cosAz := azimuth.Sincos()
	sinLat2 := sinLat1*cosD + cosLat1*sinD*cosAz
	lat2 := math.Asin(math.Max(-1, math.Min(1, sinLat2)))
	lon2 := from.Lon.Rad() + math.Atan2(sinAz*sinD*cosLat1, cosD-sinLat1*sinLat2)
	return Coord{Lat: unit.Angle(lat2), Lon: normalizeLon(unit.Angle(lon2))}
}

// normalizeLon wraps a longitude into [-π, π).
func normalizeLon(lon unit.Angle) unit.Angle {
	return unit.Angle(unit.PMod(lon.Rad()+math.Pi, 2*math.Pi) - math.Pi)
}
