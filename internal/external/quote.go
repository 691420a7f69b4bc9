package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/taskhive/pkg/logger"
)

const defaultQuoteURL = "https://zenquotes.io/api/random"
const defaultQuoteTimeout = 2 * time.Second

// QuoteConfig customises the quote client; zero values fall back to defaults.
type QuoteConfig struct {
	URL     string
	Timeout time.Duration
}

// QuoteClient fetches short motivational quotes from an external source.
// The source is best-effort enrichment: every failure mode is absorbed and
// reported as "no quote available" rather than an error.
type QuoteClient struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewQuoteClient constructs a quote client with a bounded request timeout.
func NewQuoteClient(cfg QuoteConfig) *QuoteClient {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = defaultQuoteURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultQuoteTimeout
	}

	return &QuoteClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    logger.WithModule("quotes"),
	}
}

type quotePayload struct {
	Quote  string `json:"q"`
	Author string `json:"a"`
}

// RandomQuote returns a formatted quote, or ok=false when the source is
// unavailable, slow, or returns an unusable payload.
func (c *QuoteClient) RandomQuote(ctx context.Context) (string, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.log.Warn("build quote request failed", zap.Error(err))
		return "", false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("quote fetch failed", zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("quote source returned non-200", zap.Int("status", resp.StatusCode))
		return "", false
	}

	var payload []quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Warn("decode quote payload failed", zap.Error(err))
		return "", false
	}

	if len(payload) == 0 || strings.TrimSpace(payload[0].Quote) == "" {
		return "", false
	}

	quote := payload[0]
	if strings.TrimSpace(quote.Author) == "" {
		return fmt.Sprintf("%q", quote.Quote), true
	}
	return fmt.Sprintf("%q - %s", quote.Quote, quote.Author), true
}
