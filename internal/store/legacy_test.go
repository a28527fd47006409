package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/wishwell/internal/model"
)

const legacyFixture = `{
  "banner_types": {"200": "Permanent Wish", "301": "Character Event Wish"},
  "wish_history": {
    "700": {
      "301": [
        {"id": 1001, "uid": 700, "banner_type": 301, "type": {"__enum__": "CHARACTER"}, "rarity": 5, "time": "2021-01-01 10:00:00", "name": "Venti"},
        {"id": 1002, "uid": 700, "banner_type": 301, "type": {"__enum__": "WEAPON"}, "rarity": 3, "time": "2021-01-01 10:00:01", "name": "Slingshot"}
      ],
      "200": [
        {"id": "1003", "uid": "700", "banner_type": "200", "type": {"__enum__": "WEAPON"}, "rarity": 4, "time": "2021-01-02 10:00:00", "name": "Favonius Sword"}
      ]
    }
  }
}`

func TestOpenMigratesLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wishwell.db")
	legacy := filepath.Join(dir, "database.json")
	require.NoError(t, os.WriteFile(legacy, []byte(legacyFixture), 0o644))

	ctx := context.Background()
	st, err := Open(ctx, Options{Path: path, LegacyPath: legacy, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer func() {
		_ = st.Close()
	}()

	banners, err := st.BannerTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{200: "Permanent Wish", 301: "Character Event Wish"}, banners)

	history, err := st.History(ctx, 700)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(1001), history[0].ID)
	assert.Equal(t, model.CategoryCharacter, history[0].Category)
	assert.Equal(t, 5, history[0].Rarity)
	assert.Equal(t, int64(200), history[2].BannerType)
	assert.Equal(t, "Favonius Sword", history[2].Name)

	_, err = os.Stat(legacy)
	assert.True(t, errors.Is(err, os.ErrNotExist), "legacy snapshot must be deleted after migration")
}

func TestOpenLegacyBannerList(t *testing.T) {
	banners, err := parseLegacyBanners([]byte(`[{"id": "100", "key": "100", "name": "Novice Wishes"}, {"key": "200", "name": "Permanent Wish"}]`))
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{100: "Novice Wishes", 200: "Permanent Wish"}, banners)
}

func TestLegacyBannerListPrefersKey(t *testing.T) {
	banners, err := parseLegacyBanners([]byte(`[
		{"id": "a37a19624270b092e7250edfabce541a3435c2", "key": "100", "name": "Novice Wishes"},
		{"id": "7", "key": "301", "name": "Character Event Wish"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{100: "Novice Wishes", 301: "Character Event Wish"}, banners)

	_, err = parseLegacyBanners([]byte(`[{"id": "a37a19624270b092e7250edfabce541a3435c2", "name": "Novice Wishes"}]`))
	assert.Error(t, err)
}

func TestOpenMigratesLegacyBannerList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wishwell.db")
	legacy := filepath.Join(dir, "database.json")
	snapshot := `{
  "banner_types": [
    {"id": "a37a19624270b092e7250edfabce541a3435c2", "key": "200", "name": "Permanent Wish"}
  ],
  "wish_history": {
    "700": {
      "200": [
        {"id": "1003", "type": {"__enum__": "WEAPON"}, "rarity": 4, "time": "2021-01-02 10:00:00", "name": "Favonius Sword"}
      ]
    }
  }
}`
	require.NoError(t, os.WriteFile(legacy, []byte(snapshot), 0o644))

	ctx := context.Background()
	st, err := Open(ctx, Options{Path: path, LegacyPath: legacy, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer func() {
		_ = st.Close()
	}()

	banners, err := st.BannerTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{200: "Permanent Wish"}, banners)
	count, err := st.CountWishes(ctx, 700)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpenCorruptLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wishwell.db")
	legacy := filepath.Join(dir, "database.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"banner_types": {`), 0o644))

	_, err := Open(context.Background(), Options{Path: path, LegacyPath: legacy, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrStoreCorrupt)

	_, err = os.Stat(legacy)
	assert.NoError(t, err, "legacy snapshot must survive a failed migration")
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "partial store must be removed")
}

func TestOpenWithoutLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(context.Background(), Options{
		Path:       filepath.Join(dir, "wishwell.db"),
		LegacyPath: filepath.Join(dir, "database.json"),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	_ = st.Close()
}
