package domain

import "time"

type ItemStatus string

const (
	ItemStatusUploading  ItemStatus = "uploading"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusReady      ItemStatus = "ready"
	ItemStatusFailed     ItemStatus = "failed"
	ItemStatusRejected   ItemStatus = "rejected"
)

type Item struct {
	ID              string
	Title           string
	Description     string
	Status          ItemStatus
	Thumbnail       string
	URLMP4          string
	DurationSeconds int
	User            ItemUser
	Stats           ItemStats
	CreatedAt       time.Time
}

type ItemUser struct {
	ID       string
	Username string
}

type ItemStats struct {
	Likes    int64
	NotLikes int64
	Views    int64
}

// ItemPage is one page of a server-side cursor listing.
type ItemPage struct {
	Items      []Item
	NextCursor string
	HasMore    bool
}
