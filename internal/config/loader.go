package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Filters {
		applyFilterDefaults(&cfg.Filters[i])
	}
	for i := range cfg.Pages {
		applyPageDefaults(&cfg.Pages[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := resolvePaths(&cfg.Global, filepath.Dir(path)); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("WebRoot", "./public")
	v.SetDefault("BaseURL", "")
	v.SetDefault("ManifestDir", "")
	v.SetDefault("HashSalt", DefaultHashSalt)
	v.SetDefault("WatchAssets", false)
	v.SetDefault("WatchDebounce", "500ms")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.HashSalt) == "" {
		g.HashSalt = DefaultHashSalt
	}
	if g.WatchDebounce.DurationValue() <= 0 {
		g.WatchDebounce = Duration(500 * time.Millisecond)
	}
	g.BaseURL = strings.TrimSpace(g.BaseURL)
}

func applyFilterDefaults(f *FilterConfig) {
	f.Name = strings.TrimSpace(f.Name)
	actions := f.Actions[:0]
	for _, action := range f.Actions {
		if trimmed := strings.TrimSpace(action); trimmed != "" {
			actions = append(actions, trimmed)
		}
	}
	f.Actions = actions
}

func applyPageDefaults(p *PageConfig) {
	p.Name = strings.TrimSpace(p.Name)
	p.Route = strings.TrimSpace(p.Route)
	if p.Route != "" && !strings.HasPrefix(p.Route, "/") {
		p.Route = "/" + p.Route
	}
}

// resolvePaths 将 WebRoot/ManifestDir 相对于配置文件目录转为绝对路径。
func resolvePaths(g *GlobalConfig, baseDir string) error {
	webRoot, err := absFrom(baseDir, g.WebRoot)
	if err != nil {
		return fmt.Errorf("无法解析 WebRoot: %w", err)
	}
	g.WebRoot = webRoot

	if strings.TrimSpace(g.ManifestDir) != "" {
		manifestDir, err := absFrom(baseDir, g.ManifestDir)
		if err != nil {
			return fmt.Errorf("无法解析 ManifestDir: %w", err)
		}
		g.ManifestDir = manifestDir
	}
	return nil
}

func absFrom(baseDir, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Abs(p)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
