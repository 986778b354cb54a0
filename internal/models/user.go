package models

import "strings"

// Role 用户角色
type Role string

const (
	RoleUser       Role = "user"
	RoleRespondent Role = "respondent"
)

// ParseRole 大小写不敏感；未知值返回 false
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleRespondent:
		return RoleRespondent, true
	}
	return "", false
}

// ParseLoginRole 解析登录界面的角色名，Patient 视同 user
func ParseLoginRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient", "user":
		return RoleUser, true
	case "respondent", "responder":
		return RoleRespondent, true
	}
	return "", false
}

// User 当前登录用户
type User struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// IsResponder 是否为急救员
func (u *User) IsResponder() bool {
	return u != nil && u.Role == RoleRespondent
}

// AuthTokens 登录/注册返回的令牌
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    string `json:"expiresIn,omitempty"`
}

// AuthData 登录/注册响应 data 字段
type AuthData struct {
	User   User       `json:"user"`
	Tokens AuthTokens `json:"tokens"`
}

// LoginRequest POST /auth/login
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	LoginType Role   `json:"loginType" validate:"required,oneof=user respondent"`
}

// SignupRequest POST /auth/signup
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,oneof=user respondent"`
}
