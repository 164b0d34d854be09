package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/appcache-hub/appcache-hub/internal/store"
)

// PageHandler renders a configured page. It allows injecting fake renderers
// during tests.
type PageHandler interface {
	Handle(fiber.Ctx, *PageRoute) error
}

// PageHandlerFunc adapts a function to the PageHandler interface.
type PageHandlerFunc func(fiber.Ctx, *PageRoute) error

// Handle makes PageHandlerFunc satisfy PageHandler.
func (f PageHandlerFunc) Handle(c fiber.Ctx, route *PageRoute) error {
	return f(c, route)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger   *logrus.Logger
	Registry *PageRegistry
	Pages    PageHandler
	// Manifests serves *.manifest requests; nil disables the middleware.
	Manifests store.Store
	// WebRoot serves everything that is neither a page nor a manifest; empty disables it.
	WebRoot    string
	ListenPort int
}

const (
	contextKeyRoute     = "_appcache_route"
	contextKeyRequestID = "_appcache_request_id"
)

// NewApp builds a Fiber application with request-ID, manifest and page routing
// middleware, falling back to static files from the web root.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("page registry is required")
	}
	if opts.Pages == nil {
		return nil, errors.New("page handler is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))
	if opts.Manifests != nil {
		app.Use(manifestMiddleware(opts.Manifests, opts.Logger))
	}

	var assets fiber.Handler
	if opts.WebRoot != "" {
		assets = static.New(opts.WebRoot)
	}

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		if route, ok := getRouteFromContext(c); ok {
			return opts.Pages.Handle(c, route)
		}
		if assets != nil {
			return assets(c)
		}
		return c.Next()
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并基于请求路径查找 PageRoute。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		requestPath := string(c.Request().URI().Path())
		if isDiagnosticsPath(requestPath) {
			return c.Next()
		}

		method := c.Method()
		if method != fiber.MethodGet && method != fiber.MethodHead {
			return c.Next()
		}

		if route, ok := opts.Registry.Lookup(requestPath); ok {
			c.Locals(contextKeyRoute, route)
		}
		return c.Next()
	}
}

func getRouteFromContext(c fiber.Ctx) (*PageRoute, bool) {
	if value := c.Locals(contextKeyRoute); value != nil {
		if route, ok := value.(*PageRoute); ok {
			return route, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
