package clients

import (
	"net/http"
)

// HTTPClientI позволяет подменить транспорт Bot API в тестах.
type HTTPClientI interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPClientAdapter struct {
	client *http.Client
}

func (h *HTTPClientAdapter) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}
