package models

// AlertPreferences 通知渠道
type AlertPreferences struct {
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
	Email bool `json:"email"`
}

type ProfileSettings struct {
	AlertPreferences    AlertPreferences `json:"alertPreferences"`
	EnableFallDetection bool             `json:"enableFallDetection"`
	TrustedLocations    []string         `json:"trustedLocations"`
}

type DeviceInfo struct {
	BatteryHealth *float64 `json:"batteryHealth,omitempty"`
}

// UserProfile GET /auth/profile
type UserProfile struct {
	ID                string             `json:"_id"`
	Email             string             `json:"email"`
	Role              Role               `json:"role"`
	FullName          string             `json:"fullName"`
	Phone             string             `json:"phone"`
	IsActive          bool               `json:"isActive"`
	MedicalInfo       MedicalInfo        `json:"medicalInfo"`
	Settings          ProfileSettings    `json:"settings"`
	DeviceInfo        DeviceInfo         `json:"deviceInfo"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
	CreatedAt         Timestamp          `json:"createdAt"`
	UpdatedAt         Timestamp          `json:"updatedAt"`
}

// ProfileUpdate PUT /auth/profile
type ProfileUpdate struct {
	FullName    string      `json:"fullName" validate:"required"`
	Phone       string      `json:"phone" validate:"required"`
	MedicalInfo MedicalInfo `json:"medicalInfo"`
}
