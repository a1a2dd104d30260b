package items

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const ratioBarWidth = 20

// ListOptions describes the header and footer around a rendered item list.
type ListOptions struct {
	Title   string
	HasMore bool
	// Next is the cursor or page token for the following page.
	Next string
	Now  time.Time
}

func RenderItems(list []domain.Item, opts ListOptions) (string, error) {
	return run(func(s styles) string {
		return itemsView(list, opts, s)
	})
}

func RenderIdentity(identity domain.Identity, expiresAt time.Time, now time.Time) (string, error) {
	return run(func(s styles) string {
		return identityView(identity, expiresAt, now, s)
	})
}

func RenderQueue(intents []domain.VoteIntent, now time.Time) (string, error) {
	return run(func(s styles) string {
		return queueView(intents, now, s)
	})
}

func itemsView(list []domain.Item, opts ListOptions, s styles) string {
	title := opts.Title
	if title == "" {
		title = "Videos"
	}

	lines := []string{
		s.title.Render(title),
		s.header.Render(fmt.Sprintf("items: %d", len(list))),
	}

	if len(list) == 0 {
		lines = append(lines, s.empty.Render("Nothing to show."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, item := range list {
		lines = append(lines, s.section.Render(itemView(item, opts.Now, s)))
	}

	if opts.HasMore && opts.Next != "" {
		lines = append(lines, s.section.Render(s.muted.Render("next: "+opts.Next)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func itemView(item domain.Item, now time.Time, s styles) string {
	title := item.Title
	if title == "" {
		title = "(untitled)"
	}

	byline := item.ID
	if item.User.Username != "" {
		byline = fmt.Sprintf("%s by @%s", item.ID, item.User.Username)
	}
	if !item.CreatedAt.IsZero() && !now.IsZero() {
		byline += ", " + formatAge(item.CreatedAt, now)
	}

	parts := []string{
		s.item.Render(title),
		s.muted.Render(byline),
	}

	stats := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.like.Render(fmt.Sprintf("+%d", item.Stats.Likes)),
		" ",
		renderRatioBar(item.Stats.Likes, item.Stats.NotLikes, ratioBarWidth, s),
		" ",
		s.notLike.Render(fmt.Sprintf("-%d", item.Stats.NotLikes)),
		" ",
		s.detail.Render(fmt.Sprintf("%d views", item.Stats.Views)),
	)
	parts = append(parts, stats)

	if item.Status != "" && item.Status != domain.ItemStatusReady {
		parts = append(parts, s.warning.Render(fmt.Sprintf("[%s]", item.Status)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func identityView(identity domain.Identity, expiresAt time.Time, now time.Time, s styles) string {
	name := identity.Username
	if name == "" {
		name = identity.ID
	}
	if identity.IsAdmin {
		name += " (admin)"
	}

	lines := []string{s.item.Render(name)}
	if identity.Email != "" {
		lines = append(lines, s.detail.Render(identity.Email))
	}
	lines = append(lines, s.muted.Render(fmt.Sprintf(
		"videos: %d  likes received: %d  views: %d",
		identity.Stats.VideosUploaded,
		identity.Stats.TotalLikesReceived,
		identity.Stats.TotalViews,
	)))

	if !expiresAt.IsZero() && !now.IsZero() {
		if expiresAt.After(now) {
			lines = append(lines, s.muted.Render("access token expires "+formatRelative(expiresAt, now)))
		} else {
			lines = append(lines, s.warning.Render("access token expired, it will be refreshed on next request"))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func queueView(intents []domain.VoteIntent, now time.Time, s styles) string {
	lines := []string{
		s.title.Render("Pending votes"),
		s.header.Render(fmt.Sprintf("queued: %d", len(intents))),
	}

	if len(intents) == 0 {
		lines = append(lines, s.empty.Render("No votes waiting to sync."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, intent := range intents {
		direction := s.like.Render("like    ")
		if intent.Direction == domain.DirectionNotLike {
			direction = s.notLike.Render("not like")
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top, direction, "  ", s.detail.Render(intent.ItemID))
		if !now.IsZero() {
			line += "  " + s.muted.Render(formatAge(time.UnixMilli(intent.RecordedAtMillis), now))
		}
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRatioBar(likes, notLikes int64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	total := likes + notLikes
	if total <= 0 {
		return lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.barBracket.Render("["),
			s.empty.Render(strings.Repeat(" ", width)),
			s.barBracket.Render("]"),
		)
	}

	filled := int(math.Round(float64(width) * float64(likes) / float64(total)))
	filled = max(0, min(width, filled))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatAge(at, now time.Time) string {
	d := now.Sub(at)
	if d < 0 {
		d = 0
	}

	return humanDuration(d) + " ago"
}

func formatRelative(at, now time.Time) string {
	return "in " + humanDuration(at.Sub(now))
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "a moment"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 48*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}
