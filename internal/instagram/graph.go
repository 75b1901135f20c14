package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// GraphURL is the Instagram Graph API root.
const GraphURL = "https://graph.instagram.com"

const mediaFields = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp"

// graphTime is the API's timestamp layout ("2017-08-31T18:10:00+0000").
const graphTime = "2006-01-02T15:04:05-0700"

// GraphFetcher reads /me/media with a user access token.
type GraphFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewGraphFetcher returns a fetcher whose client retries transient
// failures (connection errors, 429, 5xx) twice.
func NewGraphFetcher(timeout time.Duration) *GraphFetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = zapLeveled{}
	c := rc.StandardClient()
	c.Timeout = timeout
	return &GraphFetcher{BaseURL: GraphURL, Client: c}
}

type graphMedia struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
}

type graphResponse struct {
	Data  []graphMedia `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Fetch implements Fetcher.
func (g *GraphFetcher) Fetch(ctx context.Context, token string, limit int) ([]Post, error) {
	if token == "" {
		return nil, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("fields", mediaFields)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("access_token", token)
	endpoint := strings.TrimRight(g.BaseURL, "/") + "/me/media?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The URL carries the token; keep it out of the error text.
		return nil, fmt.Errorf("instagram: request failed: %s",
			strings.ReplaceAll(err.Error(), url.QueryEscape(token), "REDACTED"))
	}
	defer resp.Body.Close()

	var body graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("instagram: decode (status %d): %w", resp.StatusCode, err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("instagram: %s (%s %d)", body.Error.Message, body.Error.Type, body.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram: unexpected status %d", resp.StatusCode)
	}

	out := make([]Post, 0, len(body.Data))
	for _, m := range body.Data {
		p := Post{
			ID:           m.ID,
			Caption:      m.Caption,
			MediaType:    m.MediaType,
			MediaURL:     m.MediaURL,
			ThumbnailURL: m.ThumbnailURL,
			Permalink:    m.Permalink,
		}
		if ts, err := time.Parse(graphTime, m.Timestamp); err == nil {
			p.Timestamp = ts.UTC()
		}
		out = append(out, p)
	}
	return out, nil
}

// zapLeveled adapts zap to retryablehttp.LeveledLogger.  Request URLs are
// dropped since they carry the access token.
type zapLeveled struct{}

func fields(kv []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		if k == "" || k == "url" || k == "request" {
			continue
		}
		out = append(out, zap.Any(k, kv[i+1]))
	}
	return out
}

func (zapLeveled) Error(msg string, kv ...interface{}) { zap.L().Error(msg, fields(kv)...) }
func (zapLeveled) Warn(msg string, kv ...interface{})  { zap.L().Warn(msg, fields(kv)...) }
func (zapLeveled) Info(msg string, kv ...interface{})  { zap.L().Debug(msg, fields(kv)...) }
func (zapLeveled) Debug(msg string, kv ...interface{}) { zap.L().Debug(msg, fields(kv)...) }
