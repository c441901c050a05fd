package models

import (
	"time"
)

type Link struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id,omitempty"`
	ShortCode   string  `json:"short_code"`
	OriginalURL string  `json:"original_url"`
	Title       *string `json:"title,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	IsActive    bool    `json:"is_active"`
	ClickCount  int64   `json:"click_count"`
	CreatedAt   string  `json:"created_at,omitempty"`
	QRCode      *string `json:"qr_code,omitempty"`
}

type CreateLinkInput struct {
	OriginalURL string     `json:"original_url" binding:"required,url"`
	CustomSlug  *string    `json:"custom_slug,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Password    *string    `json:"password,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	GenerateQR  bool       `json:"generate_qr,omitempty"`
}

type UpdateLinkInput struct {
	Title     *string    `json:"title,omitempty"`
	Password  *string    `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

// LookupResult is the client-visible outcome of GET /r/{shortCode}.
type LookupResult struct {
	RequiresPassword bool   `json:"requires_password"`
	RedirectURL      string `json:"redirect_url,omitempty"`
}
