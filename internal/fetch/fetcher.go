package fetch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/wishwell/internal/model"
)

// DefaultPageDelay is the courtesy pause between page requests.
const DefaultPageDelay = 100 * time.Millisecond

// HistoryStore is the persistence the Fetcher writes to.
type HistoryStore interface {
	LatestLookup
	BannerTypes(ctx context.Context) (map[int64]string, error)
	UpsertBannerTypes(ctx context.Context, banners map[int64]string) error
	StoreWishes(ctx context.Context, wishes []model.Wish) (int, error)
}

// Options configures a Fetcher.
type Options struct {
	// PageDelay is slept between page requests. Negative disables it.
	PageDelay time.Duration
	Logger    zerolog.Logger
}

// Fetcher pulls new wishes for every known banner into a HistoryStore.
type Fetcher struct {
	client *Client
	store  HistoryStore
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	log    zerolog.Logger
}

// New returns a Fetcher.
func New(client *Client, store HistoryStore, opts Options) *Fetcher {
	delay := opts.PageDelay
	if delay == 0 {
		delay = DefaultPageDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Fetcher{
		client: client,
		store:  store,
		delay:  delay,
		sleep:  sleepContext,
		log:    opts.Logger,
	}
}

// RefreshBannerTypes fetches the banner list and stores it.
func (f *Fetcher) RefreshBannerTypes(ctx context.Context, creds model.Credentials) error {
	if !creds.Complete() {
		return ErrMissingCredentials
	}
	f.log.Info().Msg("fetching banner types")
	banners, err := f.client.BannerTypes(ctx, creds)
	if err != nil {
		return err
	}
	byID := make(map[int64]string, len(banners))
	for _, b := range banners {
		byID[b.ID] = b.Name
	}
	if err := f.store.UpsertBannerTypes(ctx, byID); err != nil {
		return fmt.Errorf("failed to store banner types: %w", err)
	}
	return nil
}

// FetchBanner drains the unseen history of one banner and returns it sorted
// by id ascending.
func (f *Fetcher) FetchBanner(ctx context.Context, creds model.Credentials, bannerType int64) ([]model.Wish, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	pager := NewPager(f.client, f.store, creds, bannerType, 0)
	var wishes []model.Wish
	for pages := 0; ; pages++ {
		if pages > 0 && f.delay > 0 {
			if err := f.sleep(ctx, f.delay); err != nil {
				return nil, err
			}
		}
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		wishes = append(wishes, page.Wishes...)
		if page.Reached {
			f.log.Debug().Int64("banner_type", bannerType).Msg("reached stored history")
		}
		if page.Done {
			break
		}
	}
	sort.SliceStable(wishes, func(i, j int) bool {
		return wishes[i].ID < wishes[j].ID
	})
	return wishes, nil
}

// RefreshHistory fetches and stores new wishes for every known banner type.
// It returns the number of wishes actually stored.
func (f *Fetcher) RefreshHistory(ctx context.Context, creds model.Credentials) (int, error) {
	if !creds.Complete() {
		return 0, ErrMissingCredentials
	}
	f.log.Info().Msg("fetching wish history")
	banners, err := f.store.BannerTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load banner types: %w", err)
	}
	ids := make([]int64, 0, len(banners))
	for id := range banners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := 0
	for _, id := range ids {
		f.log.Info().Int64("banner_type", id).Str("name", banners[id]).Msg("fetching wish history for banner type")
		wishes, err := f.FetchBanner(ctx, creds, id)
		if err != nil {
			return total, err
		}
		inserted, err := f.store.StoreWishes(ctx, wishes)
		if err != nil {
			return total, fmt.Errorf("failed to store wishes: %w", err)
		}
		f.log.Info().Int64("banner_type", id).Int("fetched", len(wishes)).Int("stored", inserted).Msg("banner refreshed")
		total += inserted
	}
	return total, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
