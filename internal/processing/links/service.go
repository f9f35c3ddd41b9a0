package links

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// statsWindowDays bounds the clicksOverTime series to the trailing window
// counted from read time. Older clicks still feed the agent histograms.
const statsWindowDays = 30

type Service struct {
	linkRepo   LinkRepository
	clickRepo  ClickRepository
	slugger    Slugger
	classifier AgentClassifier
	slugLength int
	now        func() time.Time
}

func NewService(linkRepo LinkRepository, clickRepo ClickRepository, slugger Slugger, classifier AgentClassifier, slugLength int) *Service {
	if slugLength <= 0 {
		slugLength = 7
	}

	return &Service{
		linkRepo:   linkRepo,
		clickRepo:  clickRepo,
		slugger:    slugger,
		classifier: classifier,
		slugLength: slugLength,
		now:        time.Now,
	}
}

// CreateLink inserts a new link under a custom alias or a generated code.
// Slug uniqueness rests on the repository's atomic insert, not on a prior
// read: a taken custom alias fails with ErrAliasTaken, a generated-code
// collision retries with a fresh code.
func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*Link, error) {
	normalizedURL, err := validateAndNormalizeURL(in.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	link := &Link{
		URL:       normalizedURL,
		OwnerID:   strings.TrimSpace(in.OwnerID),
		CreatedAt: s.now().UTC(),
		ExpiresAt: in.ExpiresAt,
	}

	if alias := strings.TrimSpace(in.CustomAlias); alias != "" {
		if err := ValidateAlias(alias); err != nil {
			return nil, err
		}
		link.Slug = alias
		if err := s.linkRepo.Insert(ctx, link); err != nil {
			return nil, err
		}
		return link, nil
	}

	const maxAttempts = 10
	for range maxAttempts {
		slug, err := s.slugger.Generate(s.slugLength)
		if err != nil {
			return nil, err
		}
		link.Slug = slug

		if err := s.linkRepo.Insert(ctx, link); err != nil {
			if err == ErrAliasTaken {
				continue
			}
			return nil, err
		}

		return link, nil
	}

	return nil, ErrSlugExhausted
}

func (s *Service) GetLink(ctx context.Context, slug string) (*Link, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrNotFound
	}

	link, err := s.linkRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return link, nil
}

// Resolve runs the redirect state machine for a code: ErrNotFound when the
// code is absent, ErrExpired when the link is past expiresAt, otherwise the
// link to redirect to. Expired links stay findable via GetLink; only the
// redirect is refused.
func (s *Service) Resolve(ctx context.Context, slug string) (*Link, error) {
	link, err := s.GetLink(ctx, slug)
	if err != nil {
		return nil, err
	}

	if link.Expired(s.now()) {
		return nil, ErrExpired
	}

	return link, nil
}

// GetLinkForOwner fetches a link by id, scoped to the requesting owner.
// Foreign ownership is indistinguishable from absence.
func (s *Service) GetLinkForOwner(ctx context.Context, id, ownerID string) (*Link, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.linkRepo.FindByIDForOwner(ctx, id, ownerID)
}

// List returns one page of the owner's links, newest first, with per-link
// click totals. A page past the end yields an empty result, not an error.
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = 10
	}
	in.Search = strings.TrimSpace(in.Search)

	items, total, err := s.linkRepo.List(ctx, in)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, l := range items {
		ids = append(ids, l.ID)
	}

	totals := map[string]int64{}
	if len(ids) > 0 {
		totals, err = s.clickRepo.TotalsByLink(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	out := make([]LinkSummary, 0, len(items))
	for _, l := range items {
		out = append(out, LinkSummary{
			Link:        l,
			TotalClicks: totals[l.ID],
			IsExpired:   l.Expired(now),
		})
	}

	return &ListResult{Links: out, Total: total}, nil
}

// GetStats aggregates the link's click log into a sparse daily series over
// the trailing 30 days and three all-time user-agent family histograms.
// Counts are eventually consistent with the async recorder.
func (s *Service) GetStats(ctx context.Context, id, ownerID string) (*LinkStats, error) {
	link, err := s.GetLinkForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	from := dateOnly(now.AddDate(0, 0, -statsWindowDays))

	daily, err := s.clickRepo.DailyCounts(ctx, link.ID, from, now)
	if err != nil {
		return nil, err
	}

	agents, err := s.clickRepo.AgentCounts(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	stats := &LinkStats{
		ClicksOverTime: daily,
		Browsers:       make(map[string]int64),
		OS:             make(map[string]int64),
		Devices:        make(map[string]int64),
	}

	for _, a := range agents {
		fam := s.classifier.Classify(a.UserAgent)
		stats.Browsers[fam.Browser] += a.Count
		stats.OS[fam.OS] += a.Count
		stats.Devices[fam.Device] += a.Count
	}

	return stats, nil
}

func validateAndNormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidURL
	}

	u.Fragment = ""
	return u.String(), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
