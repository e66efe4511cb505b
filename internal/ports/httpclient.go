package ports

import "net/http"

// HTTPClient is satisfied by *http.Client and infra/httpclient.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
