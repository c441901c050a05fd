package handler

import (
	"testing"

	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFilterLinks(t *testing.T) {
	docs := "Project Docs"
	links := []models.Link{
		{ID: "l-1", ShortCode: "abc123", OriginalURL: "https://example.com", Title: &docs},
		{ID: "l-2", ShortCode: "Promo", OriginalURL: "https://shop.test/sale"},
	}

	tests := []struct {
		name string
		q    string
		want []string
	}{
		{"empty query keeps all", "", []string{"l-1", "l-2"}},
		{"title", "docs", []string{"l-1"}},
		{"original url", "shop.test", []string{"l-2"}},
		{"short code ignores case", "promo", []string{"l-2"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []string{}
			for _, link := range filterLinks(links, searchQuery(tt.q)) {
				ids = append(ids, link.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterUsers(t *testing.T) {
	users := []models.User{
		{ID: "u-0", Username: "root", Email: "admin@corp.test"},
		{ID: "u-1", Username: "Alice", Email: "alice@example.com"},
	}

	assert.Len(t, filterUsers(users, searchQuery("")), 2)
	assert.Equal(t, "u-1", filterUsers(users, searchQuery(" ALICE "))[0].ID)
	assert.Equal(t, "u-0", filterUsers(users, searchQuery("corp.test"))[0].ID)
	assert.Empty(t, filterUsers(users, searchQuery("bob")))
	assert.NotNil(t, filterUsers(users, searchQuery("bob")))
}
