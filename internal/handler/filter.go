package handler

import (
	"strings"

	"github.com/SergeiKhy/linkshort-web/internal/models"
)

// searchQuery reads ?q= lowercased and trimmed.
func searchQuery(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func matches(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// filterLinks keeps links whose title, original URL or short code contains q.
func filterLinks(links []models.Link, q string) []models.Link {
	if q == "" {
		return links
	}
	out := []models.Link{}
	for _, link := range links {
		title := ""
		if link.Title != nil {
			title = *link.Title
		}
		if matches(q, title, link.OriginalURL, link.ShortCode) {
			out = append(out, link)
		}
	}
	return out
}

// filterUsers keeps users whose username or email contains q.
func filterUsers(users []models.User, q string) []models.User {
	if q == "" {
		return users
	}
	out := []models.User{}
	for _, user := range users {
		if matches(q, user.Username, user.Email) {
			out = append(out, user)
		}
	}
	return out
}
