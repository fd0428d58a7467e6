package models

// GeoPoint is a GeoJSON point: coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from latitude/longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// Valid reports whether the point carries usable coordinates: both present
// and inside the WGS84 range.
func (p GeoPoint) Valid() bool {
	if len(p.Coordinates) != 2 {
		return false
	}
	lat, lng := p.Lat(), p.Lng()
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Actor identifies who issued a command. Identity is always explicit per
// request, never ambient state.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"` // "client", "provider" or "system"
}

const (
	RoleClient   = "client"
	RoleProvider = "provider"
	RoleSystem   = "system"
)
