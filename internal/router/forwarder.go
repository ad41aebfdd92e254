package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gridbalancer/internal/types"
)

// httpForwarder delivers charge requests to a substation's
// work-acceptance endpoint.
type httpForwarder struct {
	client     *http.Client
	chargePath string
}

// NewHTTPForwarder creates a forwarder with its own bounded timeout,
// independent of the poll timeout.
func NewHTTPForwarder(timeout time.Duration, chargePath string) types.Forwarder {
	if chargePath == "" {
		chargePath = "/charge"
	}
	return &httpForwarder{
		client: &http.Client{
			Timeout: timeout,
		},
		chargePath: chargePath,
	}
}

// Forward submits the request to the substation and decodes its response
func (f *httpForwarder) Forward(ctx context.Context, substation *types.Substation, req types.ChargeRequest) (*types.ChargeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, substation.Address+f.chargePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("substation returned status %d", resp.StatusCode)
	}

	var chargeResp types.ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&chargeResp); err != nil {
		return nil, fmt.Errorf("decode substation response: %w", err)
	}

	return &chargeResp, nil
}
