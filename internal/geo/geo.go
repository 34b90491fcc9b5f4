package geo

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// EarthRadiusMi is the mean earth radius in statute miles, matching the
// constant used for alert distances throughout.
const EarthRadiusMi = 3958.8

// Point is a geodetic position in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceMi returns the great-circle distance in statute miles between two
// points using the haversine formula.
func DistanceMi(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMi * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BearingDeg returns the initial great-circle bearing from a to b in
// degrees, normalized to [0, 360).
func BearingDeg(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// MagneticDeclination returns the magnetic declination in degrees
// (+East, -West) for a position and time, from the WMM model.
func MagneticDeclination(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * 0.3048

	loc := egm96.NewLocationGeodetic(lat, lon, altM)
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}
	return mag.D()
}

// MagneticBearingDeg converts a true bearing to magnetic at the given
// position, normalized to [0, 360).
func MagneticBearingDeg(trueBearing float64, at Point, altFt float64, date time.Time) float64 {
	mag := trueBearing - MagneticDeclination(at.Lat, at.Lon, altFt, date)
	return math.Mod(mag+360, 360)
}
