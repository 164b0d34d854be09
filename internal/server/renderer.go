package server

import (
	"errors"
	"io/fs"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/appcache-hub/appcache-hub/internal/hooks"
	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/view"
)

// Renderer reads page templates from the web root and runs the registered
// filter hooks around rendering.
type Renderer struct {
	assets afero.Fs
	hooks  *hooks.Registry
	logger *logrus.Logger
}

// NewRenderer constructs a Renderer. A nil registry renders pages undecorated.
func NewRenderer(assets afero.Fs, registry *hooks.Registry, logger *logrus.Logger) *Renderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Renderer{assets: assets, hooks: registry, logger: logger}
}

// Handle 读取页面文件，依次执行 BeforeRender、视图注入与 AfterRender，再返回 HTML。
func (r *Renderer) Handle(c fiber.Ctx, route *PageRoute) error {
	started := time.Now()
	requestID := RequestID(c)

	raw, err := afero.ReadFile(r.assets, route.FilePath)
	if err != nil {
		fields := logging.RequestFields(requestID, route.Config.Name, route.Config.Route, 0)
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.WithFields(fields).WithField("file", route.FilePath).Warn("page_file_missing")
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "page_not_found"})
		}
		r.logger.WithFields(fields).WithError(err).Error("page_read_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "page_unreadable"})
	}

	action := &hooks.Action{
		ID:        route.Config.Name,
		Route:     route.Config.Route,
		RequestID: requestID,
		Context:   c.Context(),
		View:      view.New(),
	}
	active := r.hooks.ActiveFor(action)

	for _, h := range active {
		if h.BeforeRender != nil {
			h.BeforeRender(action)
		}
	}

	body, err := action.View.Render(raw)
	if err != nil {
		r.logger.WithFields(logging.RequestFields(requestID, route.Config.Name, route.Config.Route, len(active))).
			WithError(err).
			Warn("page_decorate_failed")
		body = raw
	}

	for _, h := range active {
		if h.AfterRender == nil {
			continue
		}
		if next := h.AfterRender(action, body); next != nil {
			body = next
		}
	}

	r.logger.WithFields(logging.RequestFields(requestID, route.Config.Name, route.Config.Route, len(active))).
		WithField("elapsed_ms", time.Since(started).Milliseconds()).
		Debug("page_rendered")

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(body)
}
