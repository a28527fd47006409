package fetch

import (
	"context"
	"fmt"

	"github.com/verte-zerg/wishwell/internal/model"
)

// LatestLookup reports the newest stored wish id for an owner and banner.
type LatestLookup interface {
	LatestWishID(ctx context.Context, uid, bannerType int64) (int64, bool, error)
}

// Page is one step of a Pager.
type Page struct {
	// Wishes are the normalized records on this page that are not stored yet.
	Wishes []model.Wish
	// Reached is set when the stored latest wish was encountered.
	Reached bool
	// Done is set when no further pages will be produced.
	Done bool
}

// Pager walks the remote history of one banner, newest first, and stops at
// the newest wish already stored.
type Pager struct {
	client *Client
	lookup LatestLookup
	creds  model.Credentials
	banner int64

	endID     int64
	resolved  bool
	latest    int64
	hasLatest bool
	done      bool
}

// NewPager starts a pager at endID (0 for the newest page).
func NewPager(client *Client, lookup LatestLookup, creds model.Credentials, bannerType, endID int64) *Pager {
	return &Pager{
		client: client,
		lookup: lookup,
		creds:  creds,
		banner: bannerType,
		endID:  endID,
	}
}

// Cursor returns the end_id the next request will use.
func (p *Pager) Cursor() int64 {
	return p.endID
}

// Done reports whether the pager is exhausted.
func (p *Pager) Done() bool {
	return p.done
}

// Next fetches the next page.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	if p.done {
		return Page{Done: true}, nil
	}
	records, err := p.client.HistoryPage(ctx, p.creds, p.banner, p.endID)
	if err != nil {
		return Page{}, err
	}
	if len(records) == 0 {
		p.done = true
		return Page{Done: true}, nil
	}

	page := Page{Wishes: make([]model.Wish, 0, len(records))}
	for _, record := range records {
		w, err := record.Normalize(p.banner)
		if err != nil {
			return Page{}, err
		}
		// The uid is only known once the first record arrives.
		if !p.resolved {
			latest, ok, err := p.lookup.LatestWishID(ctx, w.UID, p.banner)
			if err != nil {
				return Page{}, fmt.Errorf("failed to look up latest wish: %w", err)
			}
			p.latest, p.hasLatest, p.resolved = latest, ok, true
		}
		if p.hasLatest && w.ID == p.latest {
			p.done = true
			page.Reached = true
			page.Done = true
			return page, nil
		}
		page.Wishes = append(page.Wishes, w)
		p.endID = w.ID
	}
	return page, nil
}
