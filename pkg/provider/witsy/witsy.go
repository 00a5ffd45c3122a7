package witsy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/observability"
	"github.com/rhuss/enginehub/pkg/provider"
)

// modelsPath is the catalog listing endpoint relative to BaseURL.
const modelsPath = "/llm/models"

// Provider is the witsy engine adapter.
type Provider struct {
	cfg Config
}

// Compile-time check.
var _ provider.Engine = (*Provider)(nil)

// New creates a witsy adapter. It never fails; an adapter without an API
// key is valid and reports an empty catalog.
func New(cfg Config) *Provider {
	cfg.applyDefaults()
	return &Provider{cfg: cfg}
}

// Name returns "witsy".
func (p *Provider) Name() string {
	return Name
}

// Capabilities reports model discovery only.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{ModelDiscovery: true}
}

// ListModels fetches the catalog and converts every record into a model
// with id "<engine>-<model>", the record label as name and the full record
// as meta. Order and duplicates are preserved. Without an API key the
// call short-circuits to an empty result.
func (p *Provider) ListModels(ctx context.Context) ([]api.Model, error) {
	if p.cfg.APIKey == "" {
		observability.CatalogFetchTotal.WithLabelValues(Name, "skipped").Inc()
		debug.Log("providers", "witsy catalog skipped, no api key")
		return []api.Model{}, nil
	}

	start := time.Now()
	models, err := p.fetchModels(ctx)
	observability.CatalogFetchLatency.WithLabelValues(Name).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.CatalogFetchTotal.WithLabelValues(Name, "error").Inc()
		return nil, err
	}
	observability.CatalogFetchTotal.WithLabelValues(Name, "ok").Inc()
	return models, nil
}

func (p *Provider) fetchModels(ctx context.Context) ([]api.Model, error) {
	url := p.cfg.BaseURL + modelsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("witsy: creating catalog request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	debug.Log("providers", "witsy catalog request", "method", http.MethodPost, "url", url)

	httpResp, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("witsy: requesting catalog: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := mapHTTPError(httpResp)
		debug.Log("providers", "witsy catalog error", "status", httpResp.StatusCode, "error", apiErr.Message)
		return nil, apiErr
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("witsy: reading catalog: %w", err)
	}
	debug.Trace("providers", "witsy catalog response", "body", string(body))

	return decodeCatalog(body)
}

// decodeCatalog converts a raw catalog body into models.
func decodeCatalog(body []byte) ([]api.Model, error) {
	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("witsy: decoding catalog: %w", err)
	}
	if resp.Models == nil {
		return nil, fmt.Errorf("witsy: decoding catalog: missing models field")
	}

	models := make([]api.Model, 0, len(resp.Models))
	for i, raw := range resp.Models {
		raw = bytes.TrimSpace(raw)
		if bytes.Equal(raw, []byte("null")) {
			return nil, fmt.Errorf("witsy: decoding catalog record %d: null record", i)
		}
		var rec catalogRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("witsy: decoding catalog record %d: %w", i, err)
		}
		meta, err := api.ParseMeta(raw)
		if err != nil {
			return nil, fmt.Errorf("witsy: decoding catalog record %d meta: %w", i, err)
		}
		models = append(models, api.Model{
			ID:   rec.Engine + "-" + rec.Model,
			Name: rec.Label,
			Meta: meta,
		})
	}
	return models, nil
}

// Complete is not implemented for witsy yet.
func (p *Provider) Complete(_ context.Context, _ string, _ []provider.Message, _ provider.CompletionOptions) (*provider.Response, error) {
	return nil, fmt.Errorf("witsy: complete: %w", provider.ErrNotImplemented)
}

// Stream is not implemented for witsy yet.
func (p *Provider) Stream(_ context.Context, _ string, _ []provider.Message, _ provider.CompletionOptions) (<-chan provider.Event, error) {
	return nil, fmt.Errorf("witsy: stream: %w", provider.ErrNotImplemented)
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.cfg.HTTPClient.CloseIdleConnections()
	return nil
}
