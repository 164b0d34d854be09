package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/appcache-hub/appcache-hub/internal/config"
	"github.com/appcache-hub/appcache-hub/internal/hooks"
	"github.com/appcache-hub/appcache-hub/internal/manifest"
	"github.com/appcache-hub/appcache-hub/internal/server"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

// site 聚合一次启动所需的全部共享实例：同一个 Store/Generator 被所有 Filter 复用。
type site struct {
	cfg         *config.Config
	assets      afero.Fs
	store       store.Store
	namer       manifest.Namer
	generator   *manifest.Generator
	invalidator *manifest.Invalidator
	filters     []*manifest.Filter
	hooks       *hooks.Registry
	pages       *server.PageRegistry
}

// buildSite 按“Store → Generator → Filter 钩子 → 页面路由”的顺序装配组件。
func buildSite(cfg *config.Config, assets afero.Fs, logger *logrus.Logger) (*site, error) {
	st, err := store.NewStore(assets, cfg.Global.EffectiveManifestDir())
	if err != nil {
		return nil, fmt.Errorf("初始化 manifest 目录失败: %w", err)
	}

	namer := manifest.Namer{Salt: cfg.Global.HashSalt}
	gen, err := manifest.NewGenerator(manifest.Options{
		Store:  st,
		Assets: assets,
		Namer:  namer,
		Base:   manifest.NewBase(cfg.Global.NormalizedBaseURL(), cfg.Global.WebRoot),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	registry := hooks.NewRegistry()
	filters := make([]*manifest.Filter, 0, len(cfg.Filters))
	for _, fc := range cfg.Filters {
		filter := manifest.NewFilter(manifest.FilterOptions{
			Name:        fc.Name,
			Actions:     fc.Actions,
			ExtraCaches: fc.ExtraCaches,
			Relative:    fc.RelativeURLs(),
		}, gen)
		if err := registry.Register(filter.Name(), filter.Hooks()); err != nil {
			return nil, fmt.Errorf("注册 Filter %s 失败: %w", fc.Name, err)
		}
		filters = append(filters, filter)
	}

	pages, err := server.NewPageRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("构建页面路由失败: %w", err)
	}

	return &site{
		cfg:         cfg,
		assets:      assets,
		store:       st,
		namer:       namer,
		generator:   gen,
		invalidator: manifest.NewInvalidator(st, namer, logger),
		filters:     filters,
		hooks:       registry,
		pages:       pages,
	}, nil
}
