package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/wishwell/internal/model"
)

// DefaultNoviceBanner is the beginner banner left out of the pity listing.
const DefaultNoviceBanner int64 = 100

const lowPityLimit = 5

// CategoryStats counts hits of one rarity tier and category.
type CategoryStats struct {
	Total       int
	AveragePity float64
	Samples     []int
}

// Statistics holds the per-tier totals for one owner.
type Statistics struct {
	Characters5 CategoryStats
	Weapons5    CategoryStats
	Characters4 CategoryStats
	Weapons4    CategoryStats
	Weapons3    int
}

// BannerPity is the current pity of one banner.
type BannerPity struct {
	ID    int64
	Name  string
	Pity4 int
	Pity5 int
}

// LowPity is a 5-star obtained at a low pity.
type LowPity struct {
	Name string
	Pity int
}

// Entry is one wish prepared for display.
type Entry struct {
	model.Wish
	BannerName string
	RarityText string
	Pity       int
	HasPity    bool
}

// Summary is the aggregated view of one owner's history.
type Summary struct {
	UID         int64
	Statistics  Statistics
	Pity        []BannerPity
	LowPity     []LowPity
	History     []Entry
	TotalWishes int
}

type counter struct {
	name  string
	pity4 int
	pity5 int
}

// Aggregate computes pity and totals over history, which must be ordered
// oldest first. Banners with id noviceBanner are left out of Summary.Pity;
// zero disables the exclusion.
func Aggregate(uid int64, bannerTypes map[int64]string, history []model.Wish, noviceBanner int64) Summary {
	counters := make(map[int64]*counter, len(bannerTypes))
	for id, name := range bannerTypes {
		counters[id] = &counter{name: name}
	}

	summary := Summary{UID: uid, History: make([]Entry, 0, len(history))}
	stats := &summary.Statistics
	var low []LowPity

	for _, w := range history {
		c, ok := counters[w.BannerType]
		if !ok {
			c = &counter{name: fallbackBannerName(w.BannerType)}
			counters[w.BannerType] = c
		}
		entry := Entry{
			Wish:       w,
			BannerName: c.name,
			RarityText: strings.Repeat("★", max(w.Rarity, 0)),
		}

		if w.Rarity == 5 {
			pity := c.pity5 + 1
			target := &stats.Weapons5
			if w.Category == model.CategoryCharacter {
				target = &stats.Characters5
			}
			target.add(pity)
			low = append(low, LowPity{Name: w.Name, Pity: pity})
			c.pity5 = 0
			entry.Pity, entry.HasPity = pity, true
		} else {
			c.pity5++
		}

		if w.Rarity == 4 {
			pity := c.pity4 + 1
			target := &stats.Weapons4
			if w.Category == model.CategoryCharacter {
				target = &stats.Characters4
			}
			target.add(pity)
			c.pity4 = 0
			entry.Pity, entry.HasPity = pity, true
		} else {
			c.pity4++
		}

		if w.Rarity == 3 {
			stats.Weapons3++
		}
		summary.History = append(summary.History, entry)
	}

	for _, cs := range []*CategoryStats{&stats.Characters5, &stats.Weapons5, &stats.Characters4, &stats.Weapons4} {
		cs.AveragePity = average(cs.Samples)
	}

	ids := make([]int64, 0, len(counters))
	for id := range counters {
		if noviceBanner != 0 && id == noviceBanner {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	summary.Pity = make([]BannerPity, 0, len(ids))
	for _, id := range ids {
		c := counters[id]
		summary.Pity = append(summary.Pity, BannerPity{ID: id, Name: c.name, Pity4: c.pity4, Pity5: c.pity5})
	}

	sort.SliceStable(low, func(i, j int) bool {
		return low[i].Pity < low[j].Pity
	})
	if len(low) > lowPityLimit {
		low = low[:lowPityLimit]
	}
	summary.LowPity = low

	// Newest first: order by id across banners, then reverse.
	sort.SliceStable(summary.History, func(i, j int) bool {
		return summary.History[i].ID < summary.History[j].ID
	})
	for i, j := 0, len(summary.History)-1; i < j; i, j = i+1, j-1 {
		summary.History[i], summary.History[j] = summary.History[j], summary.History[i]
	}
	summary.TotalWishes = len(summary.History)
	return summary
}

// FivestarPities returns the pity of every 5-star in chronological order.
func (s Summary) FivestarPities() []float64 {
	var out []float64
	for i := len(s.History) - 1; i >= 0; i-- {
		e := s.History[i]
		if e.Rarity == 5 && e.HasPity {
			out = append(out, float64(e.Pity))
		}
	}
	return out
}

func (c *CategoryStats) add(pity int) {
	c.Total++
	c.Samples = append(c.Samples, pity)
}

func average(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0
	for _, v := range samples {
		sum += v
	}
	return float64(sum) / float64(len(samples))
}

func fallbackBannerName(id int64) string {
	return fmt.Sprintf("Banner %d", id)
}
