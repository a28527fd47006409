// Package fetch retrieves wish history from the remote gacha log API.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/wishwell/internal/model"
)

const (
	// DefaultBaseURL is the global-region gacha info API.
	DefaultBaseURL = "https://hk4e-api-os.mihoyo.com/event/gacha_info/api/"
	// PageSize is the number of records requested per history page.
	PageSize = 20

	endpointConfigList = "getConfigList"
	endpointGachaLog   = "getGachaLog"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	Lang       string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the remote gacha log API.
type Client struct {
	baseURL string
	lang    string
	http    *http.Client
	log     zerolog.Logger
}

// RemoteWish is one record as returned by getGachaLog. All fields are strings
// on the wire.
type RemoteWish struct {
	ID        string `json:"id"`
	UID       string `json:"uid"`
	GachaType string `json:"gacha_type"`
	ItemType  string `json:"item_type"`
	RankType  string `json:"rank_type"`
	Time      string `json:"time"`
	Name      string `json:"name"`
}

type envelope struct {
	Retcode *int            `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type configListData struct {
	GachaTypeList []struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"gacha_type_list"`
}

type gachaLogData struct {
	List *[]RemoteWish `json:"list"`
}

// NewClient returns a Client with defaults applied.
func NewClient(opts ClientOptions) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	lang := opts.Lang
	if lang == "" {
		lang = "en"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, lang: lang, http: httpClient, log: opts.Logger}
}

// BannerTypes fetches the banner type list.
func (c *Client) BannerTypes(ctx context.Context, creds model.Credentials) ([]model.BannerType, error) {
	data, err := c.request(ctx, creds, endpointConfigList, nil)
	if err != nil {
		return nil, err
	}
	var payload configListData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpointConfigList, Reason: "invalid data", Err: err}
	}
	banners := make([]model.BannerType, 0, len(payload.GachaTypeList))
	for _, entry := range payload.GachaTypeList {
		// key is the gacha_type used by getGachaLog; older payloads only carry id.
		raw := entry.Key
		if raw == "" {
			raw = entry.ID
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &MalformedResponseError{Endpoint: endpointConfigList, Reason: fmt.Sprintf("invalid banner id %q", raw), Err: err}
		}
		banners = append(banners, model.BannerType{ID: id, Name: entry.Name})
	}
	return banners, nil
}

// HistoryPage fetches one page of history for a banner, newest first. An
// endID of 0 requests the first page.
func (c *Client) HistoryPage(ctx context.Context, creds model.Credentials, bannerType, endID int64) ([]RemoteWish, error) {
	params := url.Values{}
	params.Set("gacha_type", strconv.FormatInt(bannerType, 10))
	params.Set("size", strconv.Itoa(PageSize))
	if endID > 0 {
		params.Set("end_id", strconv.FormatInt(endID, 10))
	}
	data, err := c.request(ctx, creds, endpointGachaLog, params)
	if err != nil {
		return nil, err
	}
	var payload gachaLogData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpointGachaLog, Reason: "invalid data", Err: err}
	}
	if payload.List == nil {
		return nil, &MalformedResponseError{Endpoint: endpointGachaLog, Reason: "missing list"}
	}
	return *payload.List, nil
}

func (c *Client) request(ctx context.Context, creds model.Credentials, endpoint string, extra url.Values) (json.RawMessage, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	params := url.Values{}
	params.Set("lang", c.lang)
	params.Set("authkey", creds.Token)
	params.Set("authkey_ver", "1")
	for key, values := range extra {
		for _, v := range values {
			params.Add(key, v)
		}
	}

	c.log.Info().Str("endpoint", endpoint).Str("region", creds.Region).Msg("requesting endpoint")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("unexpected status")
		return nil, &TransportError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Msg("failed to parse response as JSON")
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: ReasonInvalidJSON, Err: err}
	}
	if env.Retcode == nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: `missing "retcode" field`}
	}
	if *env.Retcode != 0 {
		rejected := &RemoteRejectedError{Code: *env.Retcode, Message: prettyMessage(env.Message)}
		c.log.Error().Int("retcode", rejected.Code).Str("endpoint", endpoint).Msg(rejected.Message)
		return nil, rejected
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: `missing "data" field`}
	}
	return env.Data, nil
}

// Normalize converts a remote record into a Wish for the queried banner.
func (r RemoteWish) Normalize(bannerType int64) (model.Wish, error) {
	id, err := strconv.ParseInt(r.ID, 10, 64)
	if err != nil {
		return model.Wish{}, &MalformedResponseError{Endpoint: endpointGachaLog, Reason: fmt.Sprintf("invalid wish id %q", r.ID), Err: err}
	}
	uid, err := strconv.ParseInt(r.UID, 10, 64)
	if err != nil {
		return model.Wish{}, &MalformedResponseError{Endpoint: endpointGachaLog, Reason: fmt.Sprintf("invalid uid %q", r.UID), Err: err}
	}
	rarity, err := strconv.Atoi(r.RankType)
	if err != nil {
		return model.Wish{}, &MalformedResponseError{Endpoint: endpointGachaLog, Reason: fmt.Sprintf("invalid rank_type %q", r.RankType), Err: err}
	}
	return model.Wish{
		ID:         id,
		UID:        uid,
		BannerType: bannerType,
		Category:   model.CategoryFromItemType(r.ItemType),
		Rarity:     rarity,
		Time:       r.Time,
		Name:       r.Name,
	}, nil
}
