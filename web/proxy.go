package web

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Proxy forwards every request to a development server, such as the one
// started by the frontend toolchain, so the browser sees a single origin.
func Proxy(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("web: invalid dev server url, cause %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("web: dev server url %q must be absolute", target)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}
