package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResponderStatus 急救员在线状态
type ResponderStatus string

const (
	ResponderAvailable ResponderStatus = "available"
	ResponderBusy      ResponderStatus = "busy"
	ResponderOffline   ResponderStatus = "offline"
)

// VehicleTypes 注册可选的交通工具
var VehicleTypes = []string{"car", "motorcycle", "bicycle", "ambulance", "suv", "van", "other"}

// HoursPerDay availability 每天 24 个小时槽
const HoursPerDay = 24

// Availability 一周 7 天 x 24 小时的可用时间表
type Availability struct {
	Monday    [HoursPerDay]bool `json:"monday"`
	Tuesday   [HoursPerDay]bool `json:"tuesday"`
	Wednesday [HoursPerDay]bool `json:"wednesday"`
	Thursday  [HoursPerDay]bool `json:"thursday"`
	Friday    [HoursPerDay]bool `json:"friday"`
	Saturday  [HoursPerDay]bool `json:"saturday"`
	Sunday    [HoursPerDay]bool `json:"sunday"`
}

// Day returns the slots for a weekday.
func (a *Availability) Day(d time.Weekday) *[HoursPerDay]bool {
	switch d {
	case time.Monday:
		return &a.Monday
	case time.Tuesday:
		return &a.Tuesday
	case time.Wednesday:
		return &a.Wednesday
	case time.Thursday:
		return &a.Thursday
	case time.Friday:
		return &a.Friday
	case time.Saturday:
		return &a.Saturday
	default:
		return &a.Sunday
	}
}

// SetRange marks hours [from, to) of day as available.
func (a *Availability) SetRange(d time.Weekday, from, to int) error {
	if from < 0 || to > HoursPerDay || from >= to {
		return fmt.Errorf("invalid hour range %d-%d", from, to)
	}
	slots := a.Day(d)
	for h := from; h < to; h++ {
		slots[h] = true
	}
	return nil
}

// Window reports the first and last available hour of day; ok is false when the day is empty.
func (a *Availability) Window(d time.Weekday) (first, last int, ok bool) {
	slots := a.Day(d)
	first, last = -1, -1
	for h, on := range slots {
		if !on {
			continue
		}
		if first < 0 {
			first = h
		}
		last = h
	}
	return first, last, first >= 0
}

// AvailableAt reports whether t falls in an available slot.
func (a *Availability) AvailableAt(t time.Time) bool {
	return a.Day(t.Weekday())[t.Hour()]
}

// UnmarshalJSON 后端可能返回长度不足 24 的数组，按缺省 false 补齐
func (a *Availability) UnmarshalJSON(data []byte) error {
	var raw map[string][]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Availability{}
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		slots := a.Day(d)
		for h, on := range raw[weekdayKey(d)] {
			if h >= HoursPerDay {
				break
			}
			slots[h] = on
		}
	}
	return nil
}

func weekdayKey(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	}
	return "sunday"
}

// ResponderUser 急救员档案关联的用户
type ResponderUser struct {
	ID       string `json:"_id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (u *ResponderUser) UnmarshalJSON(data []byte) error {
	if id, ok := decodeRefID(data); ok {
		*u = ResponderUser{ID: id}
		return nil
	}
	type plain ResponderUser
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = ResponderUser(p)
	return nil
}

// ResponderProfile GET /responder/profile
type ResponderProfile struct {
	ID                    string          `json:"_id"`
	UserID                ResponderUser   `json:"userId"`
	FullName              string          `json:"fullName"`
	Email                 string          `json:"email"`
	Phone                 string          `json:"phone"`
	Hospital              string          `json:"hospital"`
	Role                  string          `json:"role"`
	Certifications        []string        `json:"certifications"`
	ExperienceYears       int             `json:"experienceYears"`
	VehicleType           string          `json:"vehicleType"`
	LicenseNumber         string          `json:"licenseNumber"`
	Availability          Availability    `json:"availability"`
	MaxDistance           int             `json:"maxDistance"`
	Bio                   string          `json:"bio"`
	Status                ResponderStatus `json:"status"`
	CurrentLocation       *GeoPoint       `json:"currentLocation,omitempty"`
	Rating                float64         `json:"rating"`
	TotalAssignments      int             `json:"totalAssignments"`
	SuccessfulAssignments int             `json:"successfulAssignments"`
	ResponseTimeAvg       float64         `json:"responseTimeAvg"`
	LastPing              *Timestamp      `json:"lastPing,omitempty"`
	IsActive              bool            `json:"isActive"`
	IsVerified            bool            `json:"isVerified"`
	CreatedAt             Timestamp       `json:"createdAt"`
	UpdatedAt             Timestamp       `json:"updatedAt"`
}

// SuccessRate 成功率百分比，无任务时为 0
func (p *ResponderProfile) SuccessRate() float64 {
	if p.TotalAssignments == 0 {
		return 0
	}
	return float64(p.SuccessfulAssignments) * 100 / float64(p.TotalAssignments)
}

// ResponderRegistration POST /responder/register；hospital 可为医院 id 或自定义名称
type ResponderRegistration struct {
	Hospital        string       `json:"hospital" validate:"required"`
	Certifications  []string     `json:"certifications" validate:"required,min=1,dive,required"`
	ExperienceYears int          `json:"experienceYears" validate:"min=0"`
	VehicleType     string       `json:"vehicleType" validate:"required,oneof=car motorcycle bicycle ambulance suv van other"`
	LicenseNumber   string       `json:"licenseNumber" validate:"required"`
	MaxDistance     int          `json:"maxDistance" validate:"min=1"`
	Bio             string       `json:"bio" validate:"required,max=500"`
	CurrentLocation GeoPoint     `json:"currentLocation"`
	Availability    Availability `json:"availability"`
}

// RegistrationResult data of a successful registration
type RegistrationResult struct {
	ID     string          `json:"_id,omitempty"`
	Status ResponderStatus `json:"status,omitempty"`
	Tokens *AuthTokens     `json:"tokens,omitempty"`
}
