package models

// EmergencyContact 紧急联系人
type EmergencyContact struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// ContactInput 新建/修改联系人的请求体
type ContactInput struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Relationship string `json:"relationship" validate:"required"`
}
