package httpclient

import (
	"errors"
	"net/http"
	"time"
)

const maxRedirects = 5

// Client is the shared outbound client for page fetches and messages to a
// remote server. Connections are pooled per host.
type Client struct {
	c *http.Client
}

func New(timeout time.Duration) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 4
	tr.IdleConnTimeout = 30 * time.Second

	return &Client{c: &http.Client{
		Timeout:   timeout,
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}}
}

// Do sends req. Requests without an Accept header ask for HTML or JSON.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html, application/json;q=0.9, */*;q=0.8")
	}
	return c.c.Do(req)
}
