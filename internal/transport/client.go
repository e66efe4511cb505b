package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/model"
	"github.com/rojanmagar2001/reeltally/internal/ports"
)

// Client sends messages to a Server. Delivery failures come back as an
// "Error: ..." status alongside the error.
type Client struct {
	endpoint string
	http     ports.HTTPClient
}

func NewClient(baseURL string, c ports.HTTPClient) *Client {
	return &Client{endpoint: strings.TrimRight(baseURL, "/") + "/message", http: c}
}

func (c *Client) Send(ctx context.Context, action model.Action, data any) (model.Response, error) {
	req := model.Request{Action: action}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return failed(fmt.Errorf("encode data: %w", err))
		}
		req.Data = raw
	}

	body, err := json.Marshal(req)
	if err != nil {
		return failed(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Errorf("new request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return failed(fmt.Errorf("send %s: %w", action, err))
	}
	defer resp.Body.Close()

	var out model.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return failed(fmt.Errorf("decode response (%d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("%s: %s", action, out.Status)
	}
	return out, nil
}

// Track implements ports.Sink over the wire.
func (c *Client) Track(ctx context.Context, r domain.Record) (string, error) {
	resp, err := c.Send(ctx, model.ActionTrackReel, r)
	return resp.Status, err
}

func failed(err error) (model.Response, error) {
	return model.Response{Status: model.ErrorStatus(err)}, err
}
