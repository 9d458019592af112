// Package fetch classifies queued links and downloads them into the matching
// folder.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ErrNoProcessor is returned for links no processor understands
var ErrNoProcessor = errors.New("no processor matches link")

// Processor downloads one kind of link
type Processor interface {
	Name() string
	TargetDir() string
	Match(link string) bool
	Process(ctx context.Context, link string) error
}

// Outcome names the processor that handled a link
type Outcome struct {
	Handler     string
	Destination string
}

// Registry holds processors in priority order
type Registry struct {
	processors []Processor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a processor after the ones already registered
func (r *Registry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

// Match returns the first processor that matches the link, or nil
func (r *Registry) Match(link string) Processor {
	for _, p := range r.processors {
		if p.Match(link) {
			return p
		}
	}
	return nil
}

// Processors returns all registered processors
func (r *Registry) Processors() []Processor {
	return r.processors
}

// Handle downloads link with the first matching processor
func (r *Registry) Handle(ctx context.Context, link string) (Outcome, error) {
	p := r.Match(link)
	if p == nil {
		slog.Warn("Unsupported link", "url", link)
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoProcessor, link)
	}

	out := Outcome{Handler: p.Name(), Destination: p.TargetDir()}
	slog.Info("Downloading", "url", link, "handler", out.Handler, "folder", out.Destination)
	if err := p.Process(ctx, link); err != nil {
		return out, fmt.Errorf("%s: %w", out.Handler, err)
	}
	return out, nil
}

// hostname returns the lowercased host of link, "" when it does not parse
func hostname(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
