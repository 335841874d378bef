package domain

// Swiss grid (CH1903 / LV03) to WGS84 approximation published by swisstopo.
// Accuracy is about one metre inside Switzerland.
// See http://www.giangrandi.ch/soft/swissgrid/swissgrid.shtml

const (
	gridOriginEasting  = 600000.0
	gridOriginNorthing = 200000.0
	gridScale          = 1e6

	// The polynomials yield units of 10000 arc seconds.
	arcUnitsToDegrees = 100.0 / 36.0
)

// GeoPoint is a WGS84 position. Both fields are empty when the source
// coordinates were not numeric.
type GeoPoint struct {
	Latitude  Value `json:"latitude"`
	Longitude Value `json:"longitude"`
}

// ToGeoPoint converts a Swiss grid coordinate pair to latitude/longitude.
func ToGeoPoint(easting, northing Value) GeoPoint {
	e, okE := easting.Get()
	n, okN := northing.Get()
	if !okE || !okN {
		return GeoPoint{}
	}
	lat, lon := GridToWGS84(e, n)
	return GeoPoint{Latitude: Float(lat), Longitude: Float(lon)}
}

// GridToWGS84 evaluates the closed-form LV03 to WGS84 series.
func GridToWGS84(easting, northing float64) (lat, lon float64) {
	// Bern becomes 0,0 and distances are expressed in 1000 km.
	y := (easting - gridOriginEasting) / gridScale
	x := (northing - gridOriginNorthing) / gridScale

	lon = 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	lat = 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	return lat * arcUnitsToDegrees, lon * arcUnitsToDegrees
}

// WGS84ToGrid is the inverse approximation, used to check round trips.
func WGS84ToGrid(lat, lon float64) (easting, northing float64) {
	// Auxiliary values: arc seconds relative to Bern, in 10000" units.
	phi := (lat*3600 - 169028.66) / 10000
	lambda := (lon*3600 - 26782.5) / 10000

	easting = 600072.37 +
		211455.93*lambda -
		10938.51*lambda*phi -
		0.36*lambda*phi*phi -
		44.54*lambda*lambda*lambda

	northing = 200147.07 +
		308807.95*phi +
		3745.25*lambda*lambda +
		76.63*phi*phi -
		194.56*lambda*lambda*phi +
		119.79*phi*phi*phi

	return easting, northing
}
