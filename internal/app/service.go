// Package app exposes the operations the command line and UI call.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/wishwell/internal/fetch"
	"github.com/verte-zerg/wishwell/internal/model"
	"github.com/verte-zerg/wishwell/internal/stats"
	"github.com/verte-zerg/wishwell/internal/store"
)

// Store is the persistence the service needs.
type Store interface {
	fetch.HistoryStore
	stats.Source
	OwnerIDs(ctx context.Context) ([]int64, error)
	BannerHistory(ctx context.Context, uid, bannerType int64) ([]model.Wish, error)
}

// Options configures a Service.
type Options struct {
	Store        Store
	Fetcher      *fetch.Fetcher
	Credentials  model.Credentials
	NoviceBanner int64
	Logger       zerolog.Logger
}

// Service serializes refreshes and answers statistics queries.
type Service struct {
	store   Store
	fetcher *fetch.Fetcher
	novice  int64
	log     zerolog.Logger

	mu    sync.Mutex
	creds model.Credentials
}

// New returns a Service.
func New(opts Options) *Service {
	return &Service{
		store:   opts.Store,
		fetcher: opts.Fetcher,
		novice:  opts.NoviceBanner,
		log:     opts.Logger,
		creds:   opts.Credentials,
	}
}

// SetCredentials replaces the credentials used by later refreshes.
func (s *Service) SetCredentials(creds model.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// RefreshBannerTypes fetches and stores the banner type list.
func (s *Service) RefreshBannerTypes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetcher.RefreshBannerTypes(ctx, s.creds)
}

// RefreshHistory fetches new wishes and returns how many were stored.
func (s *Service) RefreshHistory(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetcher.RefreshHistory(ctx, s.creds)
}

// Refresh updates banner types and then history.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fetcher.RefreshBannerTypes(ctx, s.creds); err != nil {
		return 0, err
	}
	n, err := s.fetcher.RefreshHistory(ctx, s.creds)
	if err != nil {
		return n, err
	}
	s.log.Info().Int("count", n).Msg("refresh finished")
	return n, nil
}

// ListOwners returns every uid with stored history.
func (s *Service) ListOwners(ctx context.Context) ([]int64, error) {
	return s.store.OwnerIDs(ctx)
}

// BannerTypes returns the stored banner names by id.
func (s *Service) BannerTypes(ctx context.Context) (map[int64]string, error) {
	return s.store.BannerTypes(ctx)
}

// Statistics aggregates the history of uid.
func (s *Service) Statistics(ctx context.Context, uid int64) (stats.Summary, error) {
	return stats.BuildReport(ctx, s.store, uid, s.novice)
}

// BannerHistory returns the display entries of one banner, newest first.
// Pity values are computed over the owner's whole history.
func (s *Service) BannerHistory(ctx context.Context, uid, bannerType int64) ([]stats.Entry, error) {
	if _, err := s.store.BannerHistory(ctx, uid, bannerType); err != nil {
		return nil, err
	}
	summary, err := s.Statistics(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]stats.Entry, 0, len(summary.History))
	for _, e := range summary.History {
		if e.BannerType == bannerType {
			out = append(out, e)
		}
	}
	return out, nil
}

// AllStatistics aggregates every owner.
func (s *Service) AllStatistics(ctx context.Context) ([]stats.Summary, error) {
	uids, err := s.store.OwnerIDs(ctx)
	if err != nil {
		return nil, err
	}
	return stats.BuildReports(ctx, s.store, uids, s.novice)
}

// RefreshMessage formats the result of a refresh for display.
func RefreshMessage(n int) string {
	noun := "wishes"
	if n == 1 {
		noun = "wish"
	}
	return fmt.Sprintf("Retrieved %d new %s.", n, noun)
}

// UserMessage returns display text for an error from this package's
// collaborators.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		rejected  *fetch.RemoteRejectedError
		transport *fetch.TransportError
		malformed *fetch.MalformedResponseError
		version   *store.VersionMismatchError
	)
	switch {
	case errors.Is(err, fetch.ErrMissingCredentials):
		return "Missing auth token."
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.As(err, &transport):
		return "Error making request."
	case errors.As(err, &malformed):
		if malformed.Reason == fetch.ReasonInvalidJSON {
			return "Error parsing request result as JSON."
		}
		return "Malformed response from endpoint."
	case errors.As(err, &version):
		return fmt.Sprintf("Unknown database version %d (expected %d). Refusing to continue to avoid data corruption.", version.Found, version.Expected)
	case errors.Is(err, store.ErrStoreCorrupt):
		return "The wish database is damaged and cannot be opened."
	case errors.Is(err, store.ErrUnknownOwner):
		return "No data for this UID."
	case errors.Is(err, store.ErrNoHistory):
		return "No data for this banner type."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	}
	return err.Error()
}
