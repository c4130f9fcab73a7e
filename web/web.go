// Package web holds the browser client. It stores nothing on its own, every
// read and write goes through the json api.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
)

//go:embed static/index.html
var static embed.FS

type page struct {
	ClientID string
}

// Handler renders the client once, with the OAuth client id baked in.
func Handler(clientID string) (http.Handler, error) {
	if clientID == "" {
		return nil, errors.New("web: client id cannot be empty")
	}
	tpl, err := template.ParseFS(static, "static/index.html")
	if err != nil {
		return nil, fmt.Errorf("web: unable to parse client page, cause %w", err)
	}
	var buf bytes.Buffer
	err = tpl.Execute(&buf, page{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("web: unable to render client page, cause %w", err)
	}
	body := buf.Bytes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Add("Content-Type", "text/html; charset=utf-8")
		w.Header().Add("Content-Length", strconv.Itoa(len(body)))
		w.Header().Add("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}), nil
}
