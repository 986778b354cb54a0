package models

import (
	"bytes"
	"encoding/json"
)

// AlertStatus 警报状态
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusOnScene      AlertStatus = "on-scene"
	StatusResolved     AlertStatus = "resolved"
	StatusCancelled    AlertStatus = "cancelled"
)

// IsOpen 未结束的警报不可删除
func (s AlertStatus) IsOpen() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusOnScene:
		return true
	}
	return false
}

// IsTerminal resolved / cancelled
func (s AlertStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// AlertType 警报类型
type AlertType string

const (
	AlertTypePanic  AlertType = "panic"
	AlertTypeManual AlertType = "manual"
)

// Alert 求助警报
type Alert struct {
	ID                string             `json:"_id"`
	UserID            AlertUser          `json:"userId"` // 可能是 id 字符串或展开的用户对象
	Status            AlertStatus        `json:"status"`
	Type              AlertType          `json:"type"`
	Location          AlertLocation      `json:"location"`
	AssignedResponder *AssignedResponder `json:"assignedResponder,omitempty"`
	AssignedHospital  *string            `json:"assignedHospital,omitempty"`
	Tracking          *Tracking          `json:"tracking,omitempty"`
	ResolvedAt        *Timestamp         `json:"resolvedAt,omitempty"`
	CreatedAt         Timestamp          `json:"createdAt"`
	UpdatedAt         Timestamp          `json:"updatedAt"`
}

// MedicalInfo 医疗信息
type MedicalInfo struct {
	BloodType  *string  `json:"bloodType,omitempty"`
	Allergies  []string `json:"allergies"`
	Conditions []string `json:"conditions"`
}

// AlertUser 发起人；后端有时只返回 id
type AlertUser struct {
	ID          string       `json:"_id"`
	FullName    string       `json:"fullName,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	MedicalInfo *MedicalInfo `json:"medicalInfo,omitempty"`
}

func (u *AlertUser) UnmarshalJSON(data []byte) error {
	if id, ok := decodeRefID(data); ok {
		*u = AlertUser{ID: id}
		return nil
	}
	type plain AlertUser
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = AlertUser(p)
	return nil
}

// GeocodedData 逆地理编码结果
type GeocodedData struct {
	FormattedAddress string `json:"formattedAddress"`
	Street           string `json:"street"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	PostalCode       string `json:"postalCode"`
	Neighborhood     string `json:"neighborhood"`
	PlaceID          string `json:"placeId"`
}

// AlertLocation GeoJSON 点，coordinates 为 [lng, lat]
type AlertLocation struct {
	GeocodedData *GeocodedData `json:"geocodedData,omitempty"`
	Type         string        `json:"type"`
	Coordinates  []float64     `json:"coordinates"`
	Accuracy     float64       `json:"accuracy"`
	Address      string        `json:"address"`
	StaticMapURL string        `json:"staticMapUrl"`
}

// DisplayAddress 优先使用格式化地址
func (l AlertLocation) DisplayAddress() string {
	if l.GeocodedData != nil && l.GeocodedData.FormattedAddress != "" {
		return l.GeocodedData.FormattedAddress
	}
	return l.Address
}

// RouteMeasure 距离或耗时，text 用于展示，value 为米/秒
type RouteMeasure struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type RouteInfo struct {
	Distance         RouteMeasure `json:"distance"`
	Duration         RouteMeasure `json:"duration"`
	EstimatedArrival Timestamp    `json:"estimatedArrival"`
}

// ResponderRef 指派的急救员；列表接口只返回 id，用户警报接口展开为对象
type ResponderRef struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (r *ResponderRef) UnmarshalJSON(data []byte) error {
	if id, ok := decodeRefID(data); ok {
		*r = ResponderRef{ID: id}
		return nil
	}
	type plain ResponderRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ResponderRef(p)
	return nil
}

type AssignedResponder struct {
	RouteInfo         *RouteInfo   `json:"routeInfo,omitempty"`
	ResponderID       ResponderRef `json:"responderId"`
	AssignedAt        Timestamp    `json:"assignedAt"`
	Status            string       `json:"status"`
	EstimatedDistance *float64     `json:"estimatedDistance,omitempty"`
	AcknowledgedAt    *Timestamp   `json:"acknowledgedAt,omitempty"`
	ArrivedAt         *Timestamp   `json:"arrivedAt,omitempty"`
	CancelledAt       *Timestamp   `json:"cancelledAt,omitempty"`
}

type Tracking struct {
	LastUserLocation      []float64 `json:"lastUserLocation"`
	LastUpdated           Timestamp `json:"lastUpdated"`
	LastResponderLocation []float64 `json:"lastResponderLocation"`
}

// LocationFix 设备定位结果
type LocationFix struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// PanicRequest POST /alert/panic，coordinates 为 [lat, lng]
type PanicRequest struct {
	Coordinates [2]float64 `json:"coordinates"`
	Accuracy    float64    `json:"accuracy"`
}

// ManualRequest POST /alert/manual
type ManualRequest struct {
	HospitalID string       `json:"hospitalId" validate:"required"`
	Location   PanicRequest `json:"location"`
}

// CancelRequest POST /responder/alerts/cancel/{id}
type CancelRequest struct {
	Reason string `json:"reason"`
}

// ResponderSummary 创建警报时返回的急救员概要
type ResponderSummary struct {
	Name          string  `json:"name"`
	Distance      float64 `json:"distance,omitempty"`
	EstimatedTime string  `json:"estimatedTime,omitempty"`
}

type LocationDetails struct {
	Address string `json:"address"`
}

type HospitalSummary struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

// CreationResult 发送警报/人工请求的结果
type CreationResult struct {
	Alert             *Alert            `json:"alert,omitempty"`
	AssignedResponder *ResponderSummary `json:"assignedResponder,omitempty"`
	Hospital          *HospitalSummary  `json:"hospital,omitempty"`
	EstimatedTime     string            `json:"estimatedTime,omitempty"`
	LocationDetails   *LocationDetails  `json:"locationDetails,omitempty"`
	Message           string            `json:"-"`
}

// Address 解析后的求助地址
func (r *CreationResult) Address() string {
	if r.LocationDetails != nil && r.LocationDetails.Address != "" {
		return r.LocationDetails.Address
	}
	if r.Alert != nil {
		return r.Alert.Location.DisplayAddress()
	}
	return ""
}

// ETA 优先使用顶层预计时间
func (r *CreationResult) ETA() string {
	if r.EstimatedTime != "" {
		return r.EstimatedTime
	}
	if r.AssignedResponder != nil {
		return r.AssignedResponder.EstimatedTime
	}
	return ""
}

func decodeRefID(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", false
	}
	return id, true
}
