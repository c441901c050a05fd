package models

import (
	"time"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the body returned by /auth/login and /auth/register.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

// Session is the process-wide authentication state.
// User is set only when Token is set.
type Session struct {
	Token     string     `json:"-"`
	User      *User      `json:"user"`
	Loading   bool       `json:"loading"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.User != nil
}

func (s Session) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin
}

type AdminStats struct {
	TotalUsers  int64 `json:"total_users"`
	TotalLinks  int64 `json:"total_links"`
	TotalClicks int64 `json:"total_clicks"`
	TodayClicks int64 `json:"today_clicks"`
	TodayLinks  int64 `json:"today_links"`
}

type UserStatus struct {
	Message  string `json:"message"`
	IsActive bool   `json:"is_active"`
}
