package routes

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/appcache-hub/appcache-hub/internal/hooks"
	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/manifest"
	"github.com/appcache-hub/appcache-hub/internal/server"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

// ManifestDeps 汇总诊断接口需要的组件，全部来自启动阶段的同一份实例。
type ManifestDeps struct {
	Filters     []*manifest.Filter
	Hooks       *hooks.Registry
	Pages       *server.PageRegistry
	Store       store.Store
	Namer       manifest.Namer
	Invalidator *manifest.Invalidator
	Logger      *logrus.Logger
}

// RegisterManifestRoutes 暴露 /-/manifests 诊断与失效接口，供运维查询 manifest 状态或在发布后强制刷新。
func RegisterManifestRoutes(app *fiber.App, deps ManifestDeps) {
	if app == nil || deps.Store == nil || deps.Invalidator == nil {
		return
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	app.Get("/-/manifests", func(c fiber.Ctx) error {
		filters := make([]filterPayload, 0, len(deps.Filters))
		for _, f := range deps.Filters {
			item, err := encodeFilter(c, deps, f)
			if err != nil {
				return renderStoreError(c, deps.Logger, err)
			}
			filters = append(filters, item)
		}
		sort.Slice(filters, func(i, j int) bool {
			return filters[i].Name < filters[j].Name
		})
		return c.JSON(fiber.Map{
			"filters": filters,
			"pages":   encodePages(deps.Pages.List()),
		})
	})

	app.Get("/-/manifests/:id", func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "manifest_id_required"})
		}
		info, err := manifest.Inspect(c.Context(), deps.Store, deps.Namer, id)
		if err != nil {
			return renderStoreError(c, deps.Logger, err)
		}
		return c.JSON(encodeInfo(info, ""))
	})

	app.Post("/-/manifests/:id/invalidate", func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "manifest_id_required"})
		}
		found, err := deps.Invalidator.Invalidate(c.Context(), id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invalidate_failed", "id": id})
		}
		return c.JSON(fiber.Map{"id": id, "invalidated": found})
	})

	app.Post("/-/manifests/invalidate", func(c fiber.Ctx) error {
		ids := actionIDs(deps.Filters)
		count, err := deps.Invalidator.InvalidateAll(c.Context(), ids)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invalidate_failed", "invalidated": count})
		}
		return c.JSON(fiber.Map{"invalidated": count, "checked": len(ids)})
	})
}

type filterPayload struct {
	Name        string          `json:"name"`
	Relative    bool            `json:"relative"`
	ExtraCaches []string        `json:"extra_caches"`
	HookStatus  string          `json:"hook_status"`
	Actions     []actionPayload `json:"actions"`
}

type actionPayload struct {
	ID       string     `json:"id"`
	Filename string     `json:"filename"`
	URL      string     `json:"url,omitempty"`
	Exists   bool       `json:"exists"`
	Version  int64      `json:"version,omitempty"`
	Entries  int        `json:"entries"`
	ModTime  *time.Time `json:"mod_time,omitempty"`
}

type pagePayload struct {
	Name    string   `json:"name"`
	Route   string   `json:"route"`
	File    string   `json:"file"`
	Filters []string `json:"filters"`
}

func encodeFilter(c fiber.Ctx, deps ManifestDeps, f *manifest.Filter) (filterPayload, error) {
	opts := f.Options()
	item := filterPayload{
		Name:        opts.Name,
		Relative:    opts.Relative,
		ExtraCaches: opts.ExtraCaches,
		HookStatus:  "missing",
		Actions:     make([]actionPayload, 0, len(opts.Actions)),
	}
	if deps.Hooks != nil {
		item.HookStatus = deps.Hooks.Status(opts.Name)
	}
	for _, id := range opts.Actions {
		info, err := manifest.Inspect(c.Context(), deps.Store, deps.Namer, id)
		if err != nil {
			return item, err
		}
		item.Actions = append(item.Actions, encodeInfo(info, f.ManifestURL(id)))
	}
	return item, nil
}

func encodeInfo(info manifest.Info, url string) actionPayload {
	payload := actionPayload{
		ID:       info.ID,
		Filename: info.Filename,
		URL:      url,
		Exists:   info.Exists,
		Version:  info.Version,
		Entries:  info.Entries,
	}
	if !info.ModTime.IsZero() {
		modTime := info.ModTime.UTC()
		payload.ModTime = &modTime
	}
	return payload
}

func encodePages(routes []server.PageRoute) []pagePayload {
	if len(routes) == 0 {
		return nil
	}
	result := make([]pagePayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, pagePayload{
			Name:    route.Config.Name,
			Route:   route.Config.Route,
			File:    route.Config.File,
			Filters: route.Filters,
		})
	}
	return result
}

// actionIDs 返回所有过滤器的页面标识，按首次出现顺序去重。
func actionIDs(filters []*manifest.Filter) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, f := range filters {
		for _, id := range f.Options().Actions {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func renderStoreError(c fiber.Ctx, logger *logrus.Logger, err error) error {
	logger.WithField("action", "manifest_inspect").
		WithField("request_id", server.RequestID(c)).
		WithError(err).
		Warn("manifest_inspect_failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manifest_unreadable"})
}
