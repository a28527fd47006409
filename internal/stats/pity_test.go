package stats

import (
	"fmt"
	"testing"

	"github.com/verte-zerg/wishwell/internal/model"
)

var testBanners = map[int64]string{
	100: "Novice Wishes",
	200: "Permanent Wish",
	301: "Character Event Wish",
}

type wishSeq struct {
	next    int64
	history []model.Wish
}

func (s *wishSeq) add(banner int64, rarity int, category model.Category, name string) {
	s.next++
	s.history = append(s.history, model.Wish{
		ID:         s.next,
		UID:        700,
		BannerType: banner,
		Category:   category,
		Rarity:     rarity,
		Time:       fmt.Sprintf("2021-01-01 %02d:%02d:%02d", s.next/3600, (s.next/60)%60, s.next%60),
		Name:       name,
	})
}

func (s *wishSeq) fillers(banner int64, n int) {
	for i := 0; i < n; i++ {
		s.add(banner, 3, model.CategoryWeapon, "Cool Steel")
	}
}

func bannerPity(t *testing.T, s Summary, id int64) BannerPity {
	t.Helper()
	for _, p := range s.Pity {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("banner %d missing from pity list", id)
	return BannerPity{}
}

func TestAggregatePityReset(t *testing.T) {
	seq := &wishSeq{}
	seq.fillers(301, 2)
	seq.add(301, 4, model.CategoryCharacter, "Fischl")
	seq.fillers(301, 1)
	seq.add(301, 5, model.CategoryCharacter, "Venti")
	seq.fillers(301, 1)

	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)

	p := bannerPity(t, s, 301)
	if p.Pity5 != 1 {
		t.Fatalf("expected pity5 1 after a 5-star and one filler, got %d", p.Pity5)
	}
	if p.Pity4 != 3 {
		t.Fatalf("expected pity4 3, got %d", p.Pity4)
	}
	if got := s.Statistics.Characters5.Samples; len(got) != 1 || got[0] != 5 {
		t.Fatalf("unexpected 5-star samples: %v", got)
	}
	if got := s.Statistics.Characters4.Samples; len(got) != 1 || got[0] != 3 {
		t.Fatalf("unexpected 4-star samples: %v", got)
	}
	if s.Statistics.Weapons3 != 4 {
		t.Fatalf("expected 4 three-stars, got %d", s.Statistics.Weapons3)
	}
}

func TestAggregatePityIsPerBanner(t *testing.T) {
	seq := &wishSeq{}
	seq.fillers(301, 10)
	seq.fillers(200, 3)
	seq.add(200, 5, model.CategoryWeapon, "Skyward Harp")
	seq.add(301, 5, model.CategoryCharacter, "Klee")

	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)
	if got := s.Statistics.Weapons5.Samples; len(got) != 1 || got[0] != 4 {
		t.Fatalf("unexpected weapon samples: %v", got)
	}
	if got := s.Statistics.Characters5.Samples; len(got) != 1 || got[0] != 11 {
		t.Fatalf("unexpected character samples: %v", got)
	}
}

func TestAggregateLowPityRanking(t *testing.T) {
	seq := &wishSeq{}
	pities := []int{30, 5, 90, 1, 60, 10}
	names := []string{"Diluc", "Jean", "Qiqi", "Mona", "Keqing", "Venti"}
	for i, p := range pities {
		seq.fillers(301, p-1)
		seq.add(301, 5, model.CategoryCharacter, names[i])
	}

	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)
	want := []LowPity{
		{Name: "Mona", Pity: 1},
		{Name: "Jean", Pity: 5},
		{Name: "Venti", Pity: 10},
		{Name: "Diluc", Pity: 30},
		{Name: "Keqing", Pity: 60},
	}
	if len(s.LowPity) != len(want) {
		t.Fatalf("expected %d low pity entries, got %d", len(want), len(s.LowPity))
	}
	for i := range want {
		if s.LowPity[i] != want[i] {
			t.Fatalf("low pity %d: expected %+v, got %+v", i, want[i], s.LowPity[i])
		}
	}
	if avg := s.Statistics.Characters5.AveragePity; avg != 196.0/6.0 {
		t.Fatalf("unexpected average pity %f", avg)
	}
}

func TestAggregateLowPityTiesKeepOrder(t *testing.T) {
	seq := &wishSeq{}
	for _, name := range []string{"Amber", "Lisa", "Kaeya"} {
		seq.fillers(301, 9)
		seq.add(301, 5, model.CategoryCharacter, name)
	}
	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)
	for i, name := range []string{"Amber", "Lisa", "Kaeya"} {
		if s.LowPity[i].Name != name {
			t.Fatalf("tie order broken at %d: %+v", i, s.LowPity)
		}
	}
}

func TestAggregateEmptyHistory(t *testing.T) {
	s := Aggregate(700, testBanners, nil, DefaultNoviceBanner)
	st := s.Statistics
	for _, cs := range []CategoryStats{st.Characters5, st.Weapons5, st.Characters4, st.Weapons4} {
		if cs.AveragePity != 0 || cs.Total != 0 {
			t.Fatalf("expected zero stats, got %+v", cs)
		}
	}
	if s.TotalWishes != 0 || len(s.History) != 0 || len(s.LowPity) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
	if len(s.Pity) != 2 {
		t.Fatalf("expected pity rows for known banners, got %+v", s.Pity)
	}
}

func TestAggregateNoviceExclusion(t *testing.T) {
	seq := &wishSeq{}
	seq.fillers(100, 2)

	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)
	ids := []int64{}
	for _, p := range s.Pity {
		ids = append(ids, p.ID)
	}
	if fmt.Sprint(ids) != "[200 301]" {
		t.Fatalf("novice banner not excluded: %v", ids)
	}
	if s.TotalWishes != 2 {
		t.Fatalf("novice wishes must still count towards history, got %d", s.TotalWishes)
	}

	s = Aggregate(700, testBanners, seq.history, 0)
	if len(s.Pity) != 3 || s.Pity[0].ID != 100 || s.Pity[0].Pity5 != 2 {
		t.Fatalf("expected novice banner when exclusion disabled, got %+v", s.Pity)
	}
}

func TestAggregateUnknownBanner(t *testing.T) {
	seq := &wishSeq{}
	seq.add(999, 4, model.CategoryWeapon, "Sacrificial Sword")

	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)
	p := bannerPity(t, s, 999)
	if p.Name != "Banner 999" {
		t.Fatalf("unexpected fallback name %q", p.Name)
	}
	if s.History[0].BannerName != "Banner 999" {
		t.Fatalf("unexpected entry banner name %q", s.History[0].BannerName)
	}
}

func TestAggregateHistoryNewestFirst(t *testing.T) {
	seq := &wishSeq{}
	seq.fillers(200, 1)
	seq.add(301, 4, model.CategoryCharacter, "Bennett")
	seq.add(301, 5, model.CategoryCharacter, "Zhongli")

	s := Aggregate(700, testBanners, seq.history, DefaultNoviceBanner)
	if s.TotalWishes != 3 {
		t.Fatalf("expected 3 wishes, got %d", s.TotalWishes)
	}
	first := s.History[0]
	if first.Name != "Zhongli" || first.RarityText != "★★★★★" || !first.HasPity || first.Pity != 2 {
		t.Fatalf("unexpected newest entry %+v", first)
	}
	if first.BannerName != "Character Event Wish" {
		t.Fatalf("unexpected banner name %q", first.BannerName)
	}
	last := s.History[2]
	if last.Name != "Cool Steel" || last.HasPity {
		t.Fatalf("unexpected oldest entry %+v", last)
	}
	if got := s.FivestarPities(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected 5-star pities %v", got)
	}
}
