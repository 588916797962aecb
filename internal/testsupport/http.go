package testsupport

import (
	"net/http"
	"net/http/httptest"
)

// RedirectClient returns a client that sends every request, whatever its
// host, to server. Paths and queries are preserved so tests can use
// realistic source URLs.
func RedirectClient(server *httptest.Server) *http.Client {
	base := server.Client().Transport
	target := server.Listener.Addr().String()
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			clone := req.Clone(req.Context())
			clone.URL.Scheme = "http"
			clone.URL.Host = target
			clone.Host = target
			return base.RoundTrip(clone)
		}),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
