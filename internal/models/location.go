package models

import "encoding/json"

const DefaultTrustedRadius = 100

// LocationAddress 后端返回对象 {formatted, ...}，旧数据可能是字符串
type LocationAddress struct {
	Formatted string `json:"formatted"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (a *LocationAddress) UnmarshalJSON(data []byte) error {
	if s, ok := decodeRefID(data); ok {
		*a = LocationAddress{Formatted: s}
		return nil
	}
	type plain LocationAddress
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = LocationAddress(p)
	return nil
}

func (a LocationAddress) String() string {
	if a.Formatted == "" {
		return "Unknown Location"
	}
	return a.Formatted
}

// TrustedLocation 可信地点
type TrustedLocation struct {
	ID        string          `json:"_id"`
	Name      string          `json:"name"`
	Address   LocationAddress `json:"address"`
	StaticMap string          `json:"staticMap"`
	Radius    int             `json:"radius"`
	IsHome    bool            `json:"isHome"`
	IsWork    bool            `json:"isWork"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt Timestamp       `json:"createdAt"`
}

// TrustedLocationInput 新建/修改可信地点的请求体；地址为自由文本，由后端地理编码
type TrustedLocationInput struct {
	Name    string  `json:"name" validate:"required"`
	Address string  `json:"address" validate:"required"`
	IsHome  bool    `json:"isHome"`
	IsWork  bool    `json:"isWork"`
	Notes   *string `json:"notes,omitempty"`
}

// TrustedLocationList GET /trusted-location 的 data
type TrustedLocationList struct {
	Locations []TrustedLocation `json:"locations"`
	Count     int               `json:"count"`
}
