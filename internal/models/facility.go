package models

// Coordinates 经纬度
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NearbyFacility 附近可用的医疗机构
type NearbyFacility struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	GooglePlaceID         string      `json:"googlePlaceId"`
	Address               string      `json:"address"`
	Coordinates           Coordinates `json:"coordinates"`
	Type                  string      `json:"type"`
	Services              []string    `json:"services"`
	EmergencyServices     bool        `json:"emergencyServices"`
	RegistrationStatus    string      `json:"registrationStatus"`
	Country               string      `json:"country"`
	City                  string      `json:"city"`
	Distance              float64     `json:"distance"`
	FormattedDistance     string      `json:"formattedDistance"`
	AvailableResponders   int         `json:"availableResponders"`
	TotalAssignments      int         `json:"totalAssignments"`
	SuccessfulAssignments int         `json:"successfulAssignments"`
	SuccessRate           float64     `json:"successRate"`
	AvgResponseTime       float64     `json:"avgResponseTime"`
	Rating                float64     `json:"rating"`
	TotalRatings          int         `json:"totalRatings"`
	EstimatedArrival      string      `json:"estimatedArrival"`
}

type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type FacilitySearchMetadata struct {
	Location       Coordinates `json:"location"`
	SearchRadius   float64     `json:"searchRadius"`
	TotalFound     int         `json:"totalFound"`
	AutoRegistered bool        `json:"autoRegistered"`
	Timestamp      Timestamp   `json:"timestamp"`
}

// NearbyResult GET /alert/available-responders 的 data
type NearbyResult struct {
	Facilities []NearbyFacility       `json:"facilities"`
	Pagination Pagination             `json:"pagination"`
	Metadata   FacilitySearchMetadata `json:"metadata"`
}

// GeoPoint GeoJSON 点，coordinates 为 [lng, lat]
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates []float64  `json:"coordinates"`
	UpdatedAt   *Timestamp `json:"updatedAt,omitempty"`
}

// NewGeoPoint builds a GeoJSON point from a latitude/longitude pair.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Hospital 可选的医院（人工请求使用）
type Hospital struct {
	ID       string    `json:"_id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Location *GeoPoint `json:"location,omitempty"`
}
