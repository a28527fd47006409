package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/wishwell/internal/fetch"
	"github.com/verte-zerg/wishwell/internal/model"
	"github.com/verte-zerg/wishwell/internal/store"
)

const configList = `{"retcode":0,"message":"OK","data":{"gacha_type_list":[
  {"id":"10","key":"200","name":"Permanent Wish"},
  {"id":"12","key":"301","name":"Character Event Wish"}]}}`

func remote(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case strings.HasSuffix(r.URL.Path, "getConfigList"):
			_, _ = w.Write([]byte(configList))
		case q.Get("gacha_type") == "301" && q.Get("end_id") == "":
			_, _ = fmt.Fprint(w, `{"retcode":0,"message":"OK","data":{"list":[
			  {"id":"3","uid":"700","gacha_type":"301","item_type":"Character","rank_type":"5","time":"2021-01-01 00:00:03","name":"Klee"},
			  {"id":"2","uid":"700","gacha_type":"301","item_type":"Weapon","rank_type":"3","time":"2021-01-01 00:00:02","name":"Slingshot"}]}}`)
		default:
			_, _ = fmt.Fprint(w, `{"retcode":0,"message":"OK","data":{"list":[]}}`)
		}
	}))
}

func newService(t *testing.T, baseURL string, creds model.Credentials) *Service {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{
		Path:   filepath.Join(t.TempDir(), "wishwell.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	client := fetch.NewClient(fetch.ClientOptions{BaseURL: baseURL, Logger: zerolog.Nop()})
	return New(Options{
		Store:        st,
		Fetcher:      fetch.New(client, st, fetch.Options{PageDelay: -1, Logger: zerolog.Nop()}),
		Credentials:  creds,
		NoviceBanner: 100,
		Logger:       zerolog.Nop(),
	})
}

func TestRefreshAndStatistics(t *testing.T) {
	srv := remote(t)
	defer srv.Close()
	svc := newService(t, srv.URL, model.Credentials{Region: "os_euro", Token: "secret"})
	ctx := context.Background()

	n, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Retrieved 2 new wishes.", RefreshMessage(n))

	owners, err := svc.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{700}, owners)

	banners, err := svc.BannerTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Character Event Wish", banners[301])

	summary, err := svc.Statistics(ctx, 700)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalWishes)
	assert.Equal(t, 1, summary.Statistics.Characters5.Total)
	assert.Equal(t, 2.0, summary.Statistics.Characters5.AveragePity)

	again, err := svc.RefreshHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	entries, err := svc.BannerHistory(ctx, 700, 301)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Klee", entries[0].Name)

	_, err = svc.BannerHistory(ctx, 700, 200)
	assert.ErrorIs(t, err, store.ErrNoHistory)

	all, err := svc.AllStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(700), all[0].UID)
}

func TestStatisticsUnknownOwnerIsZeroed(t *testing.T) {
	svc := newService(t, "http://127.0.0.1:1/", model.Credentials{})
	summary, err := svc.Statistics(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalWishes)
	assert.Equal(t, 0.0, summary.Statistics.Weapons5.AveragePity)
}

func TestRefreshRequiresCredentials(t *testing.T) {
	svc := newService(t, "http://127.0.0.1:1/", model.Credentials{})
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, fetch.ErrMissingCredentials)
	assert.Equal(t, "Missing auth token.", UserMessage(err))

	srv := remote(t)
	defer srv.Close()
	svc = newService(t, srv.URL, model.Credentials{})
	svc.SetCredentials(model.Credentials{Region: "os_usa", Token: "secret"})
	n, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRefreshMessage(t *testing.T) {
	assert.Equal(t, "Retrieved 0 new wishes.", RefreshMessage(0))
	assert.Equal(t, "Retrieved 1 new wish.", RefreshMessage(1))
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("wrapped: %w", fetch.ErrMissingCredentials), "Missing auth token."},
		{&fetch.RemoteRejectedError{Code: -101, Message: "Authkey timeout."}, "Authkey timeout."},
		{&fetch.TransportError{Endpoint: "getGachaLog", Status: 502}, "Error making request."},
		{&fetch.MalformedResponseError{Endpoint: "getGachaLog", Reason: fetch.ReasonInvalidJSON}, "Error parsing request result as JSON."},
		{&fetch.MalformedResponseError{Endpoint: "getGachaLog", Reason: "missing list"}, "Malformed response from endpoint."},
		{&store.VersionMismatchError{Found: 2, Expected: 1}, "Unknown database version 2 (expected 1). Refusing to continue to avoid data corruption."},
		{fmt.Errorf("open: %w", store.ErrStoreCorrupt), "The wish database is damaged and cannot be opened."},
		{store.ErrUnknownOwner, "No data for this UID."},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserMessage(tc.err))
	}
}
