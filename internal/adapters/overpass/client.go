package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/upstream"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// ProviderName identifies Overpass in cache keys, metrics and logs.
const ProviderName = "overpass"

const maxResponseBytes = 32 << 20

// Client implements domain.POIProvider against an Overpass API interpreter.
type Client struct {
	httpClient  *http.Client
	cfgProvider config.Provider
	logger      domain.Logger
}

// NewClient creates a new Overpass client.
func NewClient(cfgProvider config.Provider, logger domain.Logger, httpClient *http.Client) *Client {
	return &Client{
		httpClient:  httpClient,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// Name implements domain.POIProvider.
func (c *Client) Name() string {
	return ProviderName
}

// Fetch posts the rendered query as form field "data" and returns the raw JSON body.
func (c *Client) Fetch(ctx context.Context, query domain.POIQuery) ([]byte, error) {
	ctx = upstream.WithProvider(ctx, ProviderName)
	cfg := c.cfgProvider.Get().Upstream
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	form := url.Values{"data": {query.QL}}.Encode()

	body, err := upstream.Do(ctx, c.httpClient, ProviderName, timeout, maxResponseBytes, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.OverpassBaseURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", cfg.UserAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		c.logger.Warn(ctx, "Overpass request failed", "category", query.Category, "radius_m", query.RadiusM, "error", err.Error())
		return nil, err
	}

	c.logger.Debug(ctx, "Overpass request succeeded", "category", query.Category, "bytes", len(body))
	return body, nil
}

var _ domain.POIProvider = (*Client)(nil)

// Std-compatible config: an element with mismatched field types fails to decode.
var decoder = sonic.ConfigStd

type envelope struct {
	Remark   string            `json:"remark,omitempty"`
	Elements []json.RawMessage `json:"elements"`
}

// Decode implements domain.POIProvider.
func (c *Client) Decode(body []byte) ([]domain.RawElement, int, error) {
	return DecodeElements(body)
}

// DecodeElements parses an Overpass JSON body. Each element is decoded on its
// own so one malformed element does not fail the whole response.
func DecodeElements(body []byte) ([]domain.RawElement, int, error) {
	var env envelope
	if err := decoder.Unmarshal(body, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: decoding overpass response: %w", domain.ErrUpstream, err)
	}
	// Overpass reports query timeouts and memory exhaustion in a 200 response
	// with possibly partial elements.
	if strings.HasPrefix(strings.TrimSpace(env.Remark), "runtime error") {
		return nil, 0, fmt.Errorf("%w: overpass remark: %s", domain.ErrUpstream, env.Remark)
	}

	elements := make([]domain.RawElement, 0, len(env.Elements))
	dropped := 0
	for _, raw := range env.Elements {
		var el domain.RawElement
		if err := decoder.Unmarshal(raw, &el); err != nil {
			dropped++
			continue
		}
		elements = append(elements, el)
	}
	return elements, dropped, nil
}
