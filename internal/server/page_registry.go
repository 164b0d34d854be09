package server

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/appcache-hub/appcache-hub/internal/config"
)

// PageRoute 将 Page 配置与派生属性（磁盘路径、命中的过滤器）聚合在一起，
// 供路由层与诊断接口直接复用，避免每个请求重复解析配置。
type PageRoute struct {
	// Config 是 config.toml 中声明的 Page 字段副本。
	Config config.PageConfig
	// FilePath 是页面模板在 WebRoot 下的绝对路径。
	FilePath string
	// Filters 记录对该页面生效的过滤器名称，按配置顺序排列。
	Filters []string
	// ListenPort 记录当前 CLI 监听端口，方便日志输出。
	ListenPort int
}

// PageRegistry 提供请求路径到 PageRoute 的查询能力。
type PageRegistry struct {
	routes  map[string]*PageRoute
	ordered []*PageRoute
}

// NewPageRegistry 根据配置构建路径映射。调用方应在启动阶段创建一次并复用。
func NewPageRegistry(cfg *config.Config) (*PageRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &PageRegistry{
		routes: make(map[string]*PageRoute, len(cfg.Pages)),
	}

	for _, page := range cfg.Pages {
		key := normalizeRoute(page.Route)
		if key == "" {
			return nil, fmt.Errorf("invalid route for page %s", page.Name)
		}
		if _, exists := registry.routes[key]; exists {
			return nil, fmt.Errorf("duplicate route mapping detected for %s", key)
		}

		route, err := buildPageRoute(cfg, page)
		if err != nil {
			return nil, err
		}

		registry.routes[key] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据请求路径查找 PageRoute，尾部斜杠不参与匹配。
func (r *PageRegistry) Lookup(requestPath string) (*PageRoute, bool) {
	if r == nil {
		return nil, false
	}

	key := normalizeRoute(requestPath)
	if key == "" {
		return nil, false
	}

	route, ok := r.routes[key]
	return route, ok
}

// List 返回当前注册的 PageRoute 列表（按配置定义的顺序），用于诊断输出。
func (r *PageRegistry) List() []PageRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]PageRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
		result[i].Filters = append([]string(nil), route.Filters...)
	}
	return result
}

func buildPageRoute(cfg *config.Config, page config.PageConfig) (*PageRoute, error) {
	file := strings.TrimSpace(page.File)
	if file == "" {
		return nil, fmt.Errorf("page %s: file is required", page.Name)
	}
	if filepath.IsAbs(file) {
		return nil, fmt.Errorf("page %s: file must be relative to WebRoot", page.Name)
	}

	var filters []string
	for _, filter := range cfg.Filters {
		if filter.Applies(page.Name) {
			filters = append(filters, filter.Name)
		}
	}

	return &PageRoute{
		Config:     page,
		FilePath:   filepath.Join(cfg.Global.WebRoot, filepath.FromSlash(file)),
		Filters:    filters,
		ListenPort: cfg.Global.ListenPort,
	}, nil
}

func normalizeRoute(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	cleaned := path.Clean("/" + raw)
	return cleaned
}
