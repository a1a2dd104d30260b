package items

import (
	"testing"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderItemsList(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := RenderItems([]domain.Item{
		{
			ID:        "v1",
			Title:     "Sunset timelapse",
			Status:    domain.ItemStatusReady,
			User:      domain.ItemUser{ID: "u1", Username: "maya"},
			Stats:     domain.ItemStats{Likes: 30, NotLikes: 10, Views: 512},
			CreatedAt: now.Add(-3 * time.Hour),
		},
		{
			ID:     "v2",
			Status: domain.ItemStatusProcessing,
		},
	}, ListOptions{Title: "Feed", HasMore: true, Next: "cursor-2", Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Feed")
	assert.Contains(t, output, "items: 2")
	assert.Contains(t, output, "Sunset timelapse")
	assert.Contains(t, output, "v1 by @maya, 3 hours ago")
	assert.Contains(t, output, "+30")
	assert.Contains(t, output, "-10")
	assert.Contains(t, output, "512 views")
	assert.Contains(t, output, "(untitled)")
	assert.Contains(t, output, "[processing]")
	assert.Contains(t, output, "next: cursor-2")
}

func TestRenderItemsEmpty(t *testing.T) {
	output, err := RenderItems(nil, ListOptions{Title: "Liked"})

	require.NoError(t, err)
	assert.Contains(t, output, "Liked")
	assert.Contains(t, output, "items: 0")
	assert.Contains(t, output, "Nothing to show.")
	assert.NotContains(t, output, "next:")
}

func TestRenderItemsOmitsNextWhenLastPage(t *testing.T) {
	output, err := RenderItems([]domain.Item{{ID: "v1", Title: "Clip"}}, ListOptions{Next: "3", HasMore: false})

	require.NoError(t, err)
	assert.Contains(t, output, "Videos")
	assert.NotContains(t, output, "next:")
}

func TestRenderIdentity(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		expiresAt time.Time
		want      string
	}{
		{name: "valid token", expiresAt: now.Add(90 * time.Minute), want: "access token expires in 1 hour"},
		{name: "expired token", expiresAt: now.Add(-time.Minute), want: "access token expired"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := RenderIdentity(domain.Identity{
				ID:       "u1",
				Username: "maya",
				Email:    "maya@example.com",
				IsAdmin:  true,
				Stats:    domain.IdentityStats{VideosUploaded: 4, TotalLikesReceived: 99, TotalViews: 1200},
			}, tc.expiresAt, now)

			require.NoError(t, err)
			assert.Contains(t, output, "maya (admin)")
			assert.Contains(t, output, "maya@example.com")
			assert.Contains(t, output, "videos: 4  likes received: 99  views: 1200")
			assert.Contains(t, output, tc.want)
		})
	}
}

func TestRenderQueue(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := RenderQueue([]domain.VoteIntent{
		{ItemID: "v1", Direction: domain.DirectionLike, RecordedAtMillis: now.Add(-2 * time.Minute).UnixMilli()},
		{ItemID: "v2", Direction: domain.DirectionNotLike, RecordedAtMillis: now.Add(-26 * time.Hour).UnixMilli()},
	}, now)

	require.NoError(t, err)
	assert.Contains(t, output, "queued: 2")
	assert.Contains(t, output, "v1")
	assert.Contains(t, output, "2 minutes ago")
	assert.Contains(t, output, "not like")
	assert.Contains(t, output, "26 hours ago")
}

func TestRenderQueueEmpty(t *testing.T) {
	output, err := RenderQueue(nil, time.Time{})

	require.NoError(t, err)
	assert.Contains(t, output, "No votes waiting to sync.")
}

func TestRenderRatioBar(t *testing.T) {
	s := newStyles()

	assert.Contains(t, renderRatioBar(3, 1, 8, s), "======")
	assert.Contains(t, renderRatioBar(0, 4, 4, s), "----")
	assert.Empty(t, renderRatioBar(1, 1, 0, s))
}
