package links

import "time"

type Link struct {
	ID        string
	Slug      string
	URL       string
	OwnerID   string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the link is past its expiration at the given instant.
// Links without an expiration never expire.
func (l *Link) Expired(at time.Time) bool {
	return l.ExpiresAt != nil && at.UTC().After(l.ExpiresAt.UTC())
}

// Click is one observed resolution of a link. Clicks are append-only and
// reference their link by id only; the link may be gone by read time.
type Click struct {
	LinkID    string
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// AgentCount is the number of clicks sharing one raw user-agent string.
type AgentCount struct {
	UserAgent string
	Count     int64
}

// AgentFamilies is the classification of a raw user-agent string into the
// three independent dimensions reported by link stats.
type AgentFamilies struct {
	Browser string
	OS      string
	Device  string
}

type LinkStats struct {
	ClicksOverTime []DailyCount
	Browsers       map[string]int64
	OS             map[string]int64
	Devices        map[string]int64
}

type CreateLinkInput struct {
	URL         string
	CustomAlias string
	ExpiresAt   *time.Time
	OwnerID     string
}

type ListInput struct {
	OwnerID string
	Page    int
	Limit   int
	Search  string
}

// LinkSummary is a link as it appears in an owner's listing.
type LinkSummary struct {
	Link
	TotalClicks int64
	IsExpired   bool
}

type ListResult struct {
	Links []LinkSummary
	Total int64
}
