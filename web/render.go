// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ku-polls/models"
)

//go:embed templates/*.html
var files embed.FS

// Page names
const (
	PageIndex   = "index.html"
	PageDetail  = "detail.html"
	PageResults = "results.html"
	PageLogin   = "login.html"
	PageSignup  = "signup.html"
)

// Base is embedded in every page's data
type Base struct {
	User models.User
}

type IndexPage struct {
	Base
	Questions []models.Question
}

type DetailPage struct {
	Base
	Question         models.Question
	Choices          []models.Choice
	CanVote          bool
	PreviousChoiceID string
	ErrorMessage     string
}

type ResultsPage struct {
	Base
	Question   models.Question
	Choices    []models.Choice
	TotalVotes int
}

type LoginPage struct {
	Base
	Next         string
	Username     string
	ErrorMessage string
}

type SignupPage struct {
	Base
	Username string
	Errors   []string
}

// Renderer executes the embedded page templates inside the base layout
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageIndex, PageDetail, PageResults, PageLogin, PageSignup} {
		tmpl, err := template.ParseFS(files, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes the page with the given status code
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := r.pages[name]
	if !ok {
		slog.Error("unknown template", "name", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// Render into a buffer so a template error doesn't leave a half-written page
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("failed to render template", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
