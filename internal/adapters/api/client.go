package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
)

// Client maps the remote API endpoints onto typed calls through a Pipeline.
type Client struct {
	pipeline *Pipeline
}

var (
	_ ports.AuthAPI = (*Client)(nil)
	_ ports.VoteAPI = (*Client)(nil)
	_ ports.ItemAPI = (*Client)(nil)
)

func NewClient(pipeline *Pipeline) *Client {
	return &Client{pipeline: pipeline}
}

func (c *Client) Login(ctx context.Context, email, password string) (ports.AuthResult, error) {
	var resp authResponse
	err := c.pipeline.Execute(ctx, Request{
		Method: http.MethodPost,
		Path:        "/auth/login",
		JSON:        loginRequest{Email: email, Password: password},
		SkipRefresh: true,
	}, &resp)
	if err != nil {
		return ports.AuthResult{}, err
	}

	return resp.toResult(), nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (ports.AuthResult, error) {
	var resp authResponse
	err := c.pipeline.Execute(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/auth/register",
		JSON:        registerRequest{Username: username, Email: email, Password: password},
		SkipRefresh: true,
	}, &resp)
	if err != nil {
		return ports.AuthResult{}, err
	}

	return resp.toResult(), nil
}

// Refresh exchanges a refresh token directly. Execute uses the same call when
// it recovers from a 401.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	return c.pipeline.requestRefresh(ctx, refreshToken)
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.pipeline.Execute(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		JSON:        refreshRequest{RefreshToken: refreshToken},
		RequireAuth: true,
	}, nil)
}

func (c *Client) Me(ctx context.Context) (domain.Identity, error) {
	var resp userResponse
	err := c.pipeline.Execute(ctx, Request{Method: http.MethodGet, Path: "/me", RequireAuth: true}, &resp)
	if err != nil {
		return domain.Identity{}, err
	}

	return resp.toDomain(), nil
}

func (c *Client) Vote(ctx context.Context, itemID string, direction domain.Direction) error {
	return c.pipeline.Execute(ctx, Request{
		Method:      http.MethodPost,
		Path:        itemPath(itemID, "vote"),
		JSON:        voteRequest{Direction: string(direction)},
		RequireAuth: true,
	}, nil)
}

func (c *Client) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	var resp itemResponse
	if err := c.pipeline.Execute(ctx, Request{Method: http.MethodGet, Path: itemPath(itemID)}, &resp); err != nil {
		return domain.Item{}, err
	}

	return resp.toDomain(), nil
}

func (c *Client) Feed(ctx context.Context, cursor, visitorID string) (domain.ItemPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if visitorID != "" {
		query.Set("session_id", visitorID)
	}

	var resp pageResponse
	if err := c.pipeline.Execute(ctx, Request{Method: http.MethodGet, Path: "/feed", Query: query}, &resp); err != nil {
		return domain.ItemPage{}, err
	}

	return resp.toDomain(), nil
}

func (c *Client) Liked(ctx context.Context, cursor string) (domain.ItemPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp pageResponse
	err := c.pipeline.Execute(ctx, Request{Method: http.MethodGet, Path: "/me/liked", Query: query, RequireAuth: true}, &resp)
	if err != nil {
		return domain.ItemPage{}, err
	}

	return resp.toDomain(), nil
}

func (c *Client) Share(ctx context.Context, itemID, visitorID string) error {
	return c.pipeline.Execute(ctx, Request{
		Method: http.MethodPost,
		Path:   itemPath(itemID, "share"),
		JSON:   shareRequest{SharerSessionID: visitorID},
	}, nil)
}

func itemPath(itemID string, suffix ...string) string {
	parts := append([]string{"items", url.PathEscape(itemID)}, suffix...)
	return "/" + strings.Join(parts, "/")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type voteRequest struct {
	Direction string `json:"direction"`
}

type shareRequest struct {
	SharerSessionID string `json:"sharer_session_id"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	tokenPairResponse
	User userResponse `json:"user"`
}

func (r authResponse) toResult() ports.AuthResult {
	return ports.AuthResult{
		Identity:    r.User.toDomain(),
		Credentials: domain.CredentialPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken},
	}
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	Stats    struct {
		VideosUploaded     int64 `json:"videos_uploaded"`
		TotalLikesReceived int64 `json:"total_likes_received"`
		TotalViews         int64 `json:"total_views"`
	} `json:"stats"`
}

func (r userResponse) toDomain() domain.Identity {
	return domain.Identity{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		IsAdmin:  r.IsAdmin,
		Stats: domain.IdentityStats{
			VideosUploaded:     r.Stats.VideosUploaded,
			TotalLikesReceived: r.Stats.TotalLikesReceived,
			TotalViews:         r.Stats.TotalViews,
		},
	}
}

type itemResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	Thumbnail       string `json:"thumbnail"`
	URLMP4          string `json:"url_mp4"`
	DurationSeconds int    `json:"duration_seconds"`
	User            struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Stats struct {
		Likes    int64 `json:"likes"`
		NotLikes int64 `json:"not_likes"`
		Views    int64 `json:"views"`
	} `json:"stats"`
	CreatedAt string `json:"created_at"`
}

func (r itemResponse) toDomain() domain.Item {
	return domain.Item{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Status:          domain.ItemStatus(r.Status),
		Thumbnail:       r.Thumbnail,
		URLMP4:          r.URLMP4,
		DurationSeconds: r.DurationSeconds,
		User:            domain.ItemUser{ID: r.User.ID, Username: r.User.Username},
		Stats:           domain.ItemStats{Likes: r.Stats.Likes, NotLikes: r.Stats.NotLikes, Views: r.Stats.Views},
		CreatedAt:       parseTime(r.CreatedAt),
	}
}

// pageResponse accepts the list under "items" or under the older "videos" key.
type pageResponse struct {
	Items      []itemResponse `json:"items"`
	Videos     []itemResponse `json:"videos"`
	NextCursor string         `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}

func (r pageResponse) toDomain() domain.ItemPage {
	entries := r.Items
	if len(entries) == 0 {
		entries = r.Videos
	}

	items := make([]domain.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entry.toDomain())
	}

	return domain.ItemPage{Items: items, NextCursor: r.NextCursor, HasMore: r.HasMore}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}
