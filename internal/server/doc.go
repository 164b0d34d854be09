// Package server hosts the Fiber HTTP service: request-ID middleware, the
// manifest endpoint, page routes built from [[Page]] config and the static
// fallback for everything else under the web root. Pages are rendered by a
// PageHandler so the filter hooks stay outside the routing code; diagnostics
// routes live in the routes subpackage and are mounted under /-/.
package server
