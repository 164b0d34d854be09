package manifest

import (
	"github.com/appcache-hub/appcache-hub/internal/hooks"
	"github.com/appcache-hub/appcache-hub/internal/view"
)

// UpdateScript swaps in a freshly downloaded cache as soon as the browser
// reports it ready.
const UpdateScript = `if (window.applicationCache) {
  window.applicationCache.addEventListener('updateready', function (e) {
    if (window.applicationCache.status == window.applicationCache.UPDATEREADY) {
      window.applicationCache.swapCache();
    }
  }, false);
}`

// ManifestAttr is the <html> attribute browsers read the manifest URL from.
const ManifestAttr = "manifest"

// FilterOptions is the per-filter configuration surface.
type FilterOptions struct {
	Name string
	// Actions lists the page identifiers the filter applies to; empty matches none.
	Actions     []string
	ExtraCaches []string
	Relative    bool
}

// Filter attaches manifest generation to page rendering.
type Filter struct {
	opts    FilterOptions
	actions map[string]struct{}
	gen     *Generator
}

// NewFilter returns a Filter generating through gen.
func NewFilter(opts FilterOptions, gen *Generator) *Filter {
	actions := make(map[string]struct{}, len(opts.Actions))
	for _, id := range opts.Actions {
		actions[id] = struct{}{}
	}
	opts.Actions = append([]string(nil), opts.Actions...)
	opts.ExtraCaches = append([]string(nil), opts.ExtraCaches...)
	return &Filter{opts: opts, actions: actions, gen: gen}
}

// Name returns the filter name.
func (f *Filter) Name() string {
	return f.opts.Name
}

// Options returns a copy of the filter configuration.
func (f *Filter) Options() FilterOptions {
	opts := f.opts
	opts.Actions = append([]string(nil), f.opts.Actions...)
	opts.ExtraCaches = append([]string(nil), f.opts.ExtraCaches...)
	return opts
}

// Applies reports whether id is on the filter's allowlist.
func (f *Filter) Applies(id string) bool {
	_, ok := f.actions[id]
	return ok
}

// ManifestURL returns the manifest URL emitted for id.
func (f *Filter) ManifestURL(id string) string {
	return f.gen.ManifestURL(id, f.opts.Relative)
}

// Hooks exposes the filter as render hooks.
func (f *Filter) Hooks() hooks.Hooks {
	return hooks.Hooks{
		Active:       f.active,
		BeforeRender: f.beforeRender,
		AfterRender:  f.afterRender,
	}
}

func (f *Filter) active(action *hooks.Action) bool {
	return action != nil && f.Applies(action.ID)
}

func (f *Filter) beforeRender(action *hooks.Action) {
	if action.View == nil {
		return
	}
	action.View.RegisterJS(UpdateScript, view.PosBegin)
	action.View.SetHTMLAttr(ManifestAttr, f.ManifestURL(action.ID))
}

func (f *Filter) afterRender(action *hooks.Action, body []byte) []byte {
	f.gen.Generate(action.Ctx(), Request{
		ID:       action.ID,
		HTML:     body,
		Extra:    f.opts.ExtraCaches,
		Relative: f.opts.Relative,
	})
	return body
}
