package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/verte-zerg/wishwell/internal/model"
)

// legacySnapshot is the whole-file JSON layout used before the SQLite store.
type legacySnapshot struct {
	BannerTypes json.RawMessage                          `json:"banner_types"`
	WishHistory map[string]map[string][]legacyWishRecord `json:"wish_history"`
}

type legacyWishRecord struct {
	ID     flexInt        `json:"id"`
	Type   legacyCategory `json:"type"`
	Rarity flexInt        `json:"rarity"`
	Time   string         `json:"time"`
	Name   string         `json:"name"`
}

// legacyBannerEntry mirrors the remote banner list. Key carries the banner
// type; ID is an opaque hash on current servers and only used without a key.
type legacyBannerEntry struct {
	ID   json.RawMessage `json:"id"`
	Key  flexInt         `json:"key"`
	Name string          `json:"name"`
}

func (e legacyBannerEntry) bannerType() (int64, error) {
	if e.Key != 0 {
		return int64(e.Key), nil
	}
	var id flexInt
	if len(bytes.TrimSpace(e.ID)) == 0 {
		return 0, fmt.Errorf("banner %q has neither key nor id", e.Name)
	}
	if err := json.Unmarshal(e.ID, &id); err != nil {
		return 0, fmt.Errorf("banner %q: %w", e.Name, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("banner %q has neither key nor id", e.Name)
	}
	return int64(id), nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", raw)
	}
	*f = flexInt(v)
	return nil
}

// legacyCategory accepts {"__enum__": "CHARACTER"} or a bare tag string.
type legacyCategory model.Category

func (c *legacyCategory) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Enum string `json:"__enum__"`
	}
	var tag string
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &tagged); err != nil {
			return err
		}
		tag = tagged.Enum
	} else if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	category, err := model.ParseCategoryTag(tag)
	if err != nil {
		return err
	}
	*c = legacyCategory(category)
	return nil
}

func (s *Store) importLegacy(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: failed to read legacy snapshot: %v", ErrStoreCorrupt, err)
	}
	s.log.Warn().Str("path", path).Msg("legacy snapshot found, migrating to store")

	banners, wishes, err := parseLegacy(data)
	if err != nil {
		return fmt.Errorf("%w: failed to parse legacy snapshot %s: %v", ErrStoreCorrupt, path, err)
	}
	if err := s.UpsertBannerTypes(ctx, banners); err != nil {
		return fmt.Errorf("failed to import banner types: %w", err)
	}
	inserted, err := s.StoreWishes(ctx, wishes)
	if err != nil {
		return fmt.Errorf("failed to import wishes: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove legacy snapshot: %w", err)
	}
	s.log.Info().
		Int("banner_types", len(banners)).
		Int("wishes", inserted).
		Msg("legacy snapshot migrated")
	return nil
}

func parseLegacy(data []byte) (map[int64]string, []model.Wish, error) {
	var snap legacySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, err
	}
	banners, err := parseLegacyBanners(snap.BannerTypes)
	if err != nil {
		return nil, nil, err
	}

	var wishes []model.Wish
	for uidKey, perBanner := range snap.WishHistory {
		uid, err := strconv.ParseInt(strings.TrimSpace(uidKey), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid uid %q", uidKey)
		}
		for bannerKey, records := range perBanner {
			banner, err := strconv.ParseInt(strings.TrimSpace(bannerKey), 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid banner type %q", bannerKey)
			}
			for _, r := range records {
				wishes = append(wishes, model.Wish{
					ID:         int64(r.ID),
					UID:        uid,
					BannerType: banner,
					Category:   model.Category(r.Type),
					Rarity:     int(r.Rarity),
					Time:       r.Time,
					Name:       r.Name,
				})
			}
		}
	}
	sort.SliceStable(wishes, func(i, j int) bool {
		if wishes[i].UID == wishes[j].UID {
			return wishes[i].ID < wishes[j].ID
		}
		return wishes[i].UID < wishes[j].UID
	})
	return banners, wishes, nil
}

func parseLegacyBanners(raw json.RawMessage) (map[int64]string, error) {
	banners := map[int64]string{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return banners, nil
	}

	if trimmed[0] == '[' {
		var entries []legacyBannerEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		for _, e := range entries {
			id, err := e.bannerType()
			if err != nil {
				return nil, err
			}
			banners[id] = e.Name
		}
		return banners, nil
	}

	var byID map[string]string
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, err
	}
	for key, name := range byID {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid banner type %q", key)
		}
		banners[id] = name
	}
	return banners, nil
}
