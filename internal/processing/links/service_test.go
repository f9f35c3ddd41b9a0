package links

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockLinkRepo struct {
	insertFunc           func(ctx context.Context, link *Link) error
	findBySlugFunc       func(ctx context.Context, slug string) (*Link, error)
	findByIDForOwnerFunc func(ctx context.Context, id, ownerID string) (*Link, error)
	listFunc             func(ctx context.Context, in ListInput) ([]Link, int64, error)
}

func (m *mockLinkRepo) Insert(ctx context.Context, link *Link) error {
	return m.insertFunc(ctx, link)
}

func (m *mockLinkRepo) FindBySlug(ctx context.Context, slug string) (*Link, error) {
	return m.findBySlugFunc(ctx, slug)
}

func (m *mockLinkRepo) FindByIDForOwner(ctx context.Context, id, ownerID string) (*Link, error) {
	return m.findByIDForOwnerFunc(ctx, id, ownerID)
}

func (m *mockLinkRepo) List(ctx context.Context, in ListInput) ([]Link, int64, error) {
	return m.listFunc(ctx, in)
}

type mockClickRepo struct {
	appendFunc       func(ctx context.Context, click *Click) error
	dailyCountsFunc  func(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error)
	agentCountsFunc  func(ctx context.Context, linkID string) ([]AgentCount, error)
	totalsByLinkFunc func(ctx context.Context, linkIDs []string) (map[string]int64, error)
}

func (m *mockClickRepo) Append(ctx context.Context, click *Click) error {
	return m.appendFunc(ctx, click)
}

func (m *mockClickRepo) DailyCounts(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error) {
	return m.dailyCountsFunc(ctx, linkID, from, to)
}

func (m *mockClickRepo) AgentCounts(ctx context.Context, linkID string) ([]AgentCount, error) {
	return m.agentCountsFunc(ctx, linkID)
}

func (m *mockClickRepo) TotalsByLink(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	return m.totalsByLinkFunc(ctx, linkIDs)
}

type stubSlugger struct {
	slugs []string
	i     int
}

func (s *stubSlugger) Generate(length int) (string, error) {
	if s.i >= len(s.slugs) {
		return "", errors.New("stub slugger exhausted")
	}
	out := s.slugs[s.i]
	s.i++
	return out, nil
}

func newTestService(linkRepo LinkRepository, clickRepo ClickRepository, slugger Slugger) *Service {
	return NewService(linkRepo, clickRepo, slugger, NewUAClassifier(), 7)
}

func TestCreateLink(t *testing.T) {
	ctx := context.Background()

	t.Run("generated code happy path", func(t *testing.T) {
		var inserted *Link
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error {
				link.ID = "id-1"
				inserted = link
				return nil
			},
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{slugs: []string{"abc1234"}})

		link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com/page", OwnerID: "owner-1"})
		if err != nil {
			t.Fatal(err)
		}
		if link.Slug != "abc1234" {
			t.Errorf("slug = %q, want %q", link.Slug, "abc1234")
		}
		if link.ID != "id-1" {
			t.Errorf("id = %q, want %q", link.ID, "id-1")
		}
		if inserted == nil || inserted.OwnerID != "owner-1" {
			t.Errorf("inserted owner = %+v, want owner-1", inserted)
		}
	})

	t.Run("invalid url rejected", func(t *testing.T) {
		svc := newTestService(&mockLinkRepo{}, &mockClickRepo{}, &stubSlugger{})

		for _, raw := range []string{"", "   ", "not a url", "ftp://example.com/file", "javascript:alert(1)", "https://"} {
			if _, err := svc.CreateLink(ctx, CreateLinkInput{URL: raw}); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("CreateLink(%q) = %v, want ErrInvalidURL", raw, err)
			}
		}
	})

	t.Run("fragment stripped", func(t *testing.T) {
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error { return nil },
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{slugs: []string{"abc1234"}})

		link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com/docs#section-2"})
		if err != nil {
			t.Fatal(err)
		}
		if link.URL != "https://example.com/docs" {
			t.Errorf("url = %q, want fragment stripped", link.URL)
		}
	})

	t.Run("custom alias happy path", func(t *testing.T) {
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error { return nil },
		}
		slugger := &stubSlugger{}
		svc := newTestService(repo, &mockClickRepo{}, slugger)

		link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", CustomAlias: "promo-2024"})
		if err != nil {
			t.Fatal(err)
		}
		if link.Slug != "promo-2024" {
			t.Errorf("slug = %q, want %q", link.Slug, "promo-2024")
		}
		if slugger.i != 0 {
			t.Error("slugger should not run for custom aliases")
		}
	})

	t.Run("invalid custom alias rejected before insert", func(t *testing.T) {
		inserted := false
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error {
				inserted = true
				return nil
			},
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{})

		_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", CustomAlias: "bad alias!"})
		if !errors.Is(err, ErrInvalidAlias) {
			t.Fatalf("got %v, want ErrInvalidAlias", err)
		}
		if inserted {
			t.Error("insert should not run for an invalid alias")
		}
	})

	t.Run("taken custom alias does not retry", func(t *testing.T) {
		attempts := 0
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error {
				attempts++
				return ErrAliasTaken
			},
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{})

		_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", CustomAlias: "promo"})
		if !errors.Is(err, ErrAliasTaken) {
			t.Fatalf("got %v, want ErrAliasTaken", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("generated code collision retries with fresh code", func(t *testing.T) {
		attempts := 0
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error {
				attempts++
				if attempts < 3 {
					return ErrAliasTaken
				}
				return nil
			},
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{slugs: []string{"aaaaaaa", "bbbbbbb", "ccccccc"}})

		link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com"})
		if err != nil {
			t.Fatal(err)
		}
		if link.Slug != "ccccccc" {
			t.Errorf("slug = %q, want the third generated code", link.Slug)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("generated code gives up after ten collisions", func(t *testing.T) {
		attempts := 0
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error {
				attempts++
				return ErrAliasTaken
			},
		}
		slugs := make([]string, 20)
		for i := range slugs {
			slugs[i] = "collide"
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{slugs: slugs})

		_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com"})
		if !errors.Is(err, ErrSlugExhausted) {
			t.Fatalf("got %v, want ErrSlugExhausted", err)
		}
		if attempts != 10 {
			t.Errorf("attempts = %d, want 10", attempts)
		}
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		boom := errors.New("connection reset")
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error { return boom },
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{slugs: []string{"abc1234"}})

		if _, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com"}); !errors.Is(err, boom) {
			t.Errorf("got %v, want %v", err, boom)
		}
	})

	t.Run("concurrent identical aliases yield one winner", func(t *testing.T) {
		var mu sync.Mutex
		taken := map[string]bool{}
		repo := &mockLinkRepo{
			insertFunc: func(ctx context.Context, link *Link) error {
				mu.Lock()
				defer mu.Unlock()
				if taken[link.Slug] {
					return ErrAliasTaken
				}
				taken[link.Slug] = true
				return nil
			},
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{})

		const goroutines = 16
		results := make(chan error, goroutines)
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", CustomAlias: "contested"})
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		winners := 0
		for err := range results {
			if err == nil {
				winners++
			} else if !errors.Is(err, ErrAliasTaken) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		if winners != 1 {
			t.Errorf("winners = %d, want exactly 1", winners)
		}
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	newSvc := func(repo *mockLinkRepo) *Service {
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{})
		svc.now = func() time.Time { return now }
		return svc
	}

	t.Run("active link resolves", func(t *testing.T) {
		repo := &mockLinkRepo{
			findBySlugFunc: func(ctx context.Context, slug string) (*Link, error) {
				return &Link{ID: "id-1", Slug: slug, URL: "https://example.com"}, nil
			},
		}

		link, err := newSvc(repo).Resolve(ctx, "abc1234")
		if err != nil {
			t.Fatal(err)
		}
		if link.URL != "https://example.com" {
			t.Errorf("url = %q", link.URL)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := &mockLinkRepo{
			findBySlugFunc: func(ctx context.Context, slug string) (*Link, error) {
				return nil, ErrNotFound
			},
		}

		if _, err := newSvc(repo).Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("blank code short-circuits", func(t *testing.T) {
		repo := &mockLinkRepo{
			findBySlugFunc: func(ctx context.Context, slug string) (*Link, error) {
				t.Error("repository should not be queried for a blank code")
				return nil, ErrNotFound
			},
		}

		if _, err := newSvc(repo).Resolve(ctx, "   "); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("expired link refuses redirect", func(t *testing.T) {
		past := now.Add(-time.Hour)
		repo := &mockLinkRepo{
			findBySlugFunc: func(ctx context.Context, slug string) (*Link, error) {
				return &Link{ID: "id-1", Slug: slug, URL: "https://example.com", ExpiresAt: &past}, nil
			},
		}

		if _, err := newSvc(repo).Resolve(ctx, "abc1234"); !errors.Is(err, ErrExpired) {
			t.Errorf("got %v, want ErrExpired", err)
		}
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		exact := now
		repo := &mockLinkRepo{
			findBySlugFunc: func(ctx context.Context, slug string) (*Link, error) {
				return &Link{ID: "id-1", Slug: slug, URL: "https://example.com", ExpiresAt: &exact}, nil
			},
		}

		if _, err := newSvc(repo).Resolve(ctx, "abc1234"); err != nil {
			t.Errorf("link expiring exactly now should still resolve, got %v", err)
		}
	})

	t.Run("expired link stays findable", func(t *testing.T) {
		past := now.Add(-time.Hour)
		repo := &mockLinkRepo{
			findBySlugFunc: func(ctx context.Context, slug string) (*Link, error) {
				return &Link{ID: "id-1", Slug: slug, URL: "https://example.com", ExpiresAt: &past}, nil
			},
		}

		link, err := newSvc(repo).GetLink(ctx, "abc1234")
		if err != nil {
			t.Fatal(err)
		}
		if link.ID != "id-1" {
			t.Errorf("id = %q", link.ID)
		}
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("totals and expiry flags merged in", func(t *testing.T) {
		past := now.Add(-time.Hour)
		repo := &mockLinkRepo{
			listFunc: func(ctx context.Context, in ListInput) ([]Link, int64, error) {
				return []Link{
					{ID: "id-1", Slug: "aaa"},
					{ID: "id-2", Slug: "bbb", ExpiresAt: &past},
				}, 2, nil
			},
		}
		clicks := &mockClickRepo{
			totalsByLinkFunc: func(ctx context.Context, linkIDs []string) (map[string]int64, error) {
				return map[string]int64{"id-1": 42}, nil
			},
		}
		svc := newTestService(repo, clicks, &stubSlugger{})
		svc.now = func() time.Time { return now }

		res, err := svc.List(ctx, ListInput{OwnerID: "owner-1", Page: 1, Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if res.Total != 2 || len(res.Links) != 2 {
			t.Fatalf("total = %d, len = %d", res.Total, len(res.Links))
		}
		if res.Links[0].TotalClicks != 42 {
			t.Errorf("TotalClicks = %d, want 42", res.Links[0].TotalClicks)
		}
		if res.Links[1].TotalClicks != 0 {
			t.Errorf("link with no clicks should report 0, got %d", res.Links[1].TotalClicks)
		}
		if res.Links[0].IsExpired || !res.Links[1].IsExpired {
			t.Errorf("IsExpired flags = %v, %v", res.Links[0].IsExpired, res.Links[1].IsExpired)
		}
	})

	t.Run("paging defaults normalized", func(t *testing.T) {
		var got ListInput
		repo := &mockLinkRepo{
			listFunc: func(ctx context.Context, in ListInput) ([]Link, int64, error) {
				got = in
				return nil, 0, nil
			},
		}
		svc := newTestService(repo, &mockClickRepo{}, &stubSlugger{})

		if _, err := svc.List(ctx, ListInput{Page: -3, Limit: 0, Search: "  docs  "}); err != nil {
			t.Fatal(err)
		}
		if got.Page != 1 || got.Limit != 10 {
			t.Errorf("page/limit = %d/%d, want 1/10", got.Page, got.Limit)
		}
		if got.Search != "docs" {
			t.Errorf("search = %q, want trimmed", got.Search)
		}
	})

	t.Run("empty page skips totals lookup", func(t *testing.T) {
		repo := &mockLinkRepo{
			listFunc: func(ctx context.Context, in ListInput) ([]Link, int64, error) {
				return nil, 25, nil
			},
		}
		clicks := &mockClickRepo{
			totalsByLinkFunc: func(ctx context.Context, linkIDs []string) (map[string]int64, error) {
				t.Error("totals should not be queried for an empty page")
				return nil, nil
			},
		}
		svc := newTestService(repo, clicks, &stubSlugger{})

		res, err := svc.List(ctx, ListInput{Page: 99, Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Links) != 0 || res.Total != 25 {
			t.Errorf("len = %d, total = %d", len(res.Links), res.Total)
		}
	})
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	const (
		chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		safariiOS = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	)

	ownedLink := func() *mockLinkRepo {
		return &mockLinkRepo{
			findByIDForOwnerFunc: func(ctx context.Context, id, ownerID string) (*Link, error) {
				if ownerID != "owner-1" {
					return nil, ErrNotFound
				}
				return &Link{ID: id, Slug: "abc1234", URL: "https://example.com"}, nil
			},
		}
	}

	t.Run("window starts thirty days back at midnight", func(t *testing.T) {
		var gotFrom, gotTo time.Time
		clicks := &mockClickRepo{
			dailyCountsFunc: func(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error) {
				gotFrom, gotTo = from, to
				return nil, nil
			},
			agentCountsFunc: func(ctx context.Context, linkID string) ([]AgentCount, error) {
				return nil, nil
			},
		}
		svc := newTestService(ownedLink(), clicks, &stubSlugger{})
		svc.now = func() time.Time { return now }

		if _, err := svc.GetStats(ctx, "id-1", "owner-1"); err != nil {
			t.Fatal(err)
		}

		wantFrom := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
		if !gotFrom.Equal(wantFrom) {
			t.Errorf("from = %v, want %v", gotFrom, wantFrom)
		}
		if !gotTo.Equal(now) {
			t.Errorf("to = %v, want %v", gotTo, now)
		}
	})

	t.Run("histograms classified per agent group", func(t *testing.T) {
		clicks := &mockClickRepo{
			dailyCountsFunc: func(ctx context.Context, linkID string, from, to time.Time) ([]DailyCount, error) {
				return []DailyCount{{Date: "2024-06-14", Count: 3}, {Date: "2024-06-15", Count: 2}}, nil
			},
			agentCountsFunc: func(ctx context.Context, linkID string) ([]AgentCount, error) {
				return []AgentCount{
					{UserAgent: chromeMac, Count: 3},
					{UserAgent: safariiOS, Count: 2},
					{UserAgent: "", Count: 1},
				}, nil
			},
		}
		svc := newTestService(ownedLink(), clicks, &stubSlugger{})
		svc.now = func() time.Time { return now }

		stats, err := svc.GetStats(ctx, "id-1", "owner-1")
		if err != nil {
			t.Fatal(err)
		}

		if len(stats.ClicksOverTime) != 2 {
			t.Fatalf("series length = %d, want 2", len(stats.ClicksOverTime))
		}
		if stats.Browsers["Chrome"] != 3 || stats.Browsers["Safari"] != 2 || stats.Browsers[UnknownFamily] != 1 {
			t.Errorf("browsers = %v", stats.Browsers)
		}
		if stats.OS["macOS"] != 3 || stats.OS["iOS"] != 2 {
			t.Errorf("os = %v", stats.OS)
		}
		if stats.Devices["Desktop"] != 3 || stats.Devices["iPhone"] != 2 {
			t.Errorf("devices = %v", stats.Devices)
		}
	})

	t.Run("foreign owner reads as absent", func(t *testing.T) {
		svc := newTestService(ownedLink(), &mockClickRepo{}, &stubSlugger{})
		svc.now = func() time.Time { return now }

		if _, err := svc.GetStats(ctx, "id-1", "intruder"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}
