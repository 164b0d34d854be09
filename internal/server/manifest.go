package server

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/manifest"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

// ManifestContentType is the media type browsers require for appcache manifests.
const ManifestContentType = "text/cache-manifest"

// manifestMiddleware serves *.manifest requests from the manifest store with
// caching disabled, whatever directory prefix the base URL adds.
func manifestMiddleware(st store.Store, logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		requestPath := string(c.Request().URI().Path())
		if !strings.HasSuffix(requestPath, manifest.Extension) || isDiagnosticsPath(requestPath) {
			return c.Next()
		}
		method := c.Method()
		if method != fiber.MethodGet && method != fiber.MethodHead {
			return c.Next()
		}

		name := path.Base(requestPath)
		body, entry, err := store.ReadAll(c.Context(), st, name)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.WithFields(logging.ManifestFields("manifest_serve", "", name)).
				WithField("request_id", RequestID(c)).
				WithError(err).
				Warn("manifest_read_failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manifest_unreadable"})
		}
		if err != nil || len(body) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "manifest_not_found"})
		}

		c.Set(fiber.HeaderContentType, ManifestContentType)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderLastModified, entry.ModTime.UTC().Format(http.TimeFormat))
		return c.Send(body)
	}
}
