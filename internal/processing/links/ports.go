package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrExpired       = errors.New("link expired")
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidAlias  = errors.New("invalid alias")
	ErrAliasTaken    = errors.New("alias taken")
	ErrSlugExhausted = errors.New("slug generation exhausted")
)

// LinkRepository owns link lifetime. Insert must be atomic with respect to
// slug uniqueness: of two concurrent inserts with the same slug exactly one
// succeeds, the other gets ErrAliasTaken.
type LinkRepository interface {
	Insert(ctx context.Context, link *Link) error
	FindBySlug(ctx context.Context, slug string) (*Link, error)
	FindByIDForOwner(ctx context.Context, id, ownerID string) (*Link, error)
	List(ctx context.Context, in ListInput) ([]Link, int64, error)
}

// ClickRepository owns the append-only click log.
type ClickRepository interface {
	Append(ctx context.Context, click *Click) error
	DailyCounts(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error)
	AgentCounts(ctx context.Context, linkID string) ([]AgentCount, error)
	TotalsByLink(ctx context.Context, linkIDs []string) (map[string]int64, error)
}

type Slugger interface {
	Generate(length int) (string, error)
}

// AgentClassifier maps a raw user-agent string to family names. Empty or
// unparsable input classifies to UnknownFamily in every dimension.
type AgentClassifier interface {
	Classify(raw string) AgentFamilies
}
