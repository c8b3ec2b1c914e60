package track

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// HTTPSource queries an observation service over HTTP. The endpoint
// takes the reference and the as-of instant as query parameters and
// answers with a Value JSON body. Network and 5xx failures map to
// ErrDataSourceUnavailable so the registry retries them.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for one endpoint. A nil client gets a
// 30 second timeout default.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{baseURL: baseURL, client: client}
}

// Query fetches one observation.
func (s *HTTPSource) Query(ctx context.Context, reference string, asOf time.Time) (Value, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return Value{}, fmt.Errorf("source url %q: %w", s.baseURL, err)
	}
	q := u.Query()
	q.Set("reference", reference)
	q.Set("as_of", asOf.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Value{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Value{}, fmt.Errorf("query %s: %w", u.Host, model.ErrDataSourceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Known endpoint, unknown reference: an empty observation, not
		// an outage.
		return Value{}, nil
	case resp.StatusCode >= 500:
		return Value{}, fmt.Errorf("%s returned %d: %w", u.Host, resp.StatusCode, model.ErrDataSourceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return Value{}, fmt.Errorf("%s returned unexpected status %d", u.Host, resp.StatusCode)
	}

	var value Value
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return Value{}, fmt.Errorf("decode observation: %w", err)
	}
	return value, nil
}
