// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"errors"

	"github.com/verte-zerg/wishwell/internal/model"
	"github.com/verte-zerg/wishwell/internal/store"
)

// Source is the store data a report is built from.
type Source interface {
	BannerTypes(ctx context.Context) (map[int64]string, error)
	History(ctx context.Context, uid int64) ([]model.Wish, error)
}

// BuildReport loads the history of uid and aggregates it. An owner without
// history yields zeroed statistics.
func BuildReport(ctx context.Context, src Source, uid, noviceBanner int64) (Summary, error) {
	banners, err := src.BannerTypes(ctx)
	if err != nil {
		return Summary{}, err
	}
	history, err := src.History(ctx, uid)
	if err != nil && !errors.Is(err, store.ErrUnknownOwner) && !errors.Is(err, store.ErrNoHistory) {
		return Summary{}, err
	}
	return Aggregate(uid, banners, history, noviceBanner), nil
}

// BuildReports aggregates every owner in uids, keeping their order.
func BuildReports(ctx context.Context, src Source, uids []int64, noviceBanner int64) ([]Summary, error) {
	out := make([]Summary, 0, len(uids))
	for _, uid := range uids {
		summary, err := BuildReport(ctx, src, uid, noviceBanner)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
