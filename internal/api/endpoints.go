package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/tidwall/gjson"
)

func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", BearerHeader(token), nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" && user.Username == "" {
		return nil, ErrUnexpectedResponse
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, input models.LoginInput) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", input)
}

func (c *Client) Register(ctx context.Context, input models.RegisterInput) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", input)
}

func (c *Client) authenticate(ctx context.Context, path string, input any) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, path, nil, input, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.User == nil {
		return nil, ErrUnexpectedResponse
	}
	return &out, nil
}

func (c *Client) ListLinks(ctx context.Context, auth http.Header) ([]models.Link, error) {
	links := []models.Link{}
	if err := c.do(ctx, http.MethodGet, "/links", auth, nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (c *Client) GetLink(ctx context.Context, auth http.Header, id string) (*models.Link, error) {
	var link models.Link
	if err := c.do(ctx, http.MethodGet, "/links/"+url.PathEscape(id), auth, nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) CreateLink(ctx context.Context, auth http.Header, input *models.CreateLinkInput) (*models.Link, error) {
	var link models.Link
	if err := c.do(ctx, http.MethodPost, "/links", auth, input, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) UpdateLink(ctx context.Context, auth http.Header, id string, input *models.UpdateLinkInput) (*models.Link, error) {
	var link models.Link
	if err := c.do(ctx, http.MethodPut, "/links/"+url.PathEscape(id), auth, input, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) DeleteLink(ctx context.Context, auth http.Header, id string) error {
	return c.do(ctx, http.MethodDelete, "/links/"+url.PathEscape(id), auth, nil, nil)
}

// LinkAnalytics returns the raw analytics payload; shape checks belong to the projector.
func (c *Client) LinkAnalytics(ctx context.Context, auth http.Header, id string) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, "/links/"+url.PathEscape(id)+"/analytics", auth)
}

func (c *Client) Overview(ctx context.Context, auth http.Header) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, "/analytics/overview", auth)
}

// Lookup resolves a short code anonymously. A redirect answer is reported
// through RedirectURL instead of being followed.
func (c *Client) Lookup(ctx context.Context, shortCode string) (*models.LookupResult, error) {
	resp, err := c.send(ctx, http.MethodGet, "/r/"+url.PathEscape(shortCode), nil, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case isRedirect(resp.status):
		if resp.location == nil {
			return nil, ErrUnexpectedResponse
		}
		return &models.LookupResult{RedirectURL: resp.location.String()}, nil
	case resp.status >= 200 && resp.status <= 299:
		if gjson.GetBytes(resp.body, "requires_password").Bool() {
			return &models.LookupResult{RequiresPassword: true}, nil
		}
		return nil, ErrUnexpectedResponse
	default:
		return nil, newError(resp)
	}
}

// VerifyPassword submits a password for a protected short code and returns
// the navigation target.
func (c *Client) VerifyPassword(ctx context.Context, shortCode, password string) (string, error) {
	body := map[string]string{"password": password}
	resp, err := c.send(ctx, http.MethodPost, "/r/"+url.PathEscape(shortCode)+"/verify", nil, body)
	if err != nil {
		return "", err
	}

	switch {
	case isRedirect(resp.status):
		if resp.location == nil {
			return "", ErrUnexpectedResponse
		}
		return resp.location.String(), nil
	case resp.status >= 200 && resp.status <= 299:
		target := gjson.GetBytes(resp.body, "redirect_url")
		if target.Type != gjson.String || target.String() == "" {
			return "", ErrUnexpectedResponse
		}
		return target.String(), nil
	default:
		return "", newError(resp)
	}
}

func (c *Client) AdminStats(ctx context.Context, auth http.Header) (*models.AdminStats, error) {
	var stats models.AdminStats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", auth, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminUsers returns an empty list when the body is not a JSON array.
func (c *Client) AdminUsers(ctx context.Context, auth http.Header) ([]models.User, error) {
	body, err := c.raw(ctx, http.MethodGet, "/admin/users", auth)
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		c.logger.Warn("Admin user list is not an array")
		return users, nil
	}
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("%w: GET /admin/users: %v", ErrUnexpectedResponse, err)
	}
	return users, nil
}

func (c *Client) ToggleUserStatus(ctx context.Context, auth http.Header, id string) (*models.UserStatus, error) {
	var status models.UserStatus
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id)+"/toggle-status", auth, struct{}{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) DeleteUser(ctx context.Context, auth http.Header, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), auth, nil, nil)
}

func isRedirect(status int) bool {
	return status >= 300 && status <= 399
}
