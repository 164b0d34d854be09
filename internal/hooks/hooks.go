package hooks

import (
	"context"

	"github.com/appcache-hub/appcache-hub/internal/view"
)

// Action exposes the page being rendered without importing server internals.
type Action struct {
	// ID is the page identifier, used as the manifest key.
	ID        string
	Route     string
	RequestID string
	Context   context.Context
	View      *view.View
}

// Ctx returns the request context, falling back to Background.
func (a *Action) Ctx() context.Context {
	if a == nil || a.Context == nil {
		return context.Background()
	}
	return a.Context
}

// Hooks describes the customization points a filter can attach to page rendering.
type Hooks struct {
	// Active selects the actions this filter applies to. A nil Active matches nothing.
	Active func(action *Action) bool
	// BeforeRender runs before the page body is rendered; it may register
	// scripts or attributes on action.View.
	BeforeRender func(action *Action)
	// AfterRender receives the final HTML once per request and returns the body to send.
	AfterRender func(action *Action, body []byte) []byte
}
