package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "500ms"、"5s" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// DefaultHashSalt 是 manifest 文件名哈希的命名空间常量，修改后所有文件名都会变化。
const DefaultHashSalt = "appcache-hub/manifest.Filter"

// GlobalConfig 描述全局运行时行为，所有 Filter/Page 共享同一份参数。
type GlobalConfig struct {
	ListenPort    int      `mapstructure:"ListenPort"`
	LogLevel      string   `mapstructure:"LogLevel"`
	LogFilePath   string   `mapstructure:"LogFilePath"`
	LogMaxSize    int      `mapstructure:"LogMaxSize"`
	LogMaxBackups int      `mapstructure:"LogMaxBackups"`
	LogCompress   bool     `mapstructure:"LogCompress"`
	WebRoot       string   `mapstructure:"WebRoot"`
	BaseURL       string   `mapstructure:"BaseURL"`
	ManifestDir   string   `mapstructure:"ManifestDir"`
	HashSalt      string   `mapstructure:"HashSalt"`
	WatchAssets   bool     `mapstructure:"WatchAssets"`
	WatchDebounce Duration `mapstructure:"WatchDebounce"`
}

// FilterConfig 对应一个 manifest 过滤器实例：哪些页面启用、额外缓存项以及是否输出相对地址。
type FilterConfig struct {
	Name        string   `mapstructure:"Name"`
	Actions     []string `mapstructure:"Actions"`
	ExtraCaches []string `mapstructure:"ExtraCaches"`
	Relative    *bool    `mapstructure:"Relative"`
}

// PageConfig 声明一个由服务端渲染的页面，Name 即 manifest 标识。
type PageConfig struct {
	Name  string `mapstructure:"Name"`
	Route string `mapstructure:"Route"`
	File  string `mapstructure:"File"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig   `mapstructure:",squash"`
	Filters []FilterConfig `mapstructure:"Filter"`
	Pages   []PageConfig   `mapstructure:"Page"`
}

// RelativeURLs 返回过滤器是否剥离 BaseURL 前缀，未配置时默认开启。
func (f FilterConfig) RelativeURLs() bool {
	if f.Relative == nil {
		return true
	}
	return *f.Relative
}

// Applies 判断页面标识是否在过滤器的白名单内，空白名单不匹配任何页面。
func (f FilterConfig) Applies(id string) bool {
	for _, action := range f.Actions {
		if action == id {
			return true
		}
	}
	return false
}

// EffectiveManifestDir 返回 manifest 实际写入目录，未配置时落在 WebRoot。
func (g GlobalConfig) EffectiveManifestDir() string {
	if strings.TrimSpace(g.ManifestDir) == "" {
		return g.WebRoot
	}
	return g.ManifestDir
}

// NormalizedBaseURL 返回以 "/" 结尾的站点前缀，空值视为根路径。
func (g GlobalConfig) NormalizedBaseURL() string {
	base := strings.TrimSpace(g.BaseURL)
	return strings.TrimSuffix(base, "/") + "/"
}

// ActionIDs 汇总所有过滤器中的页面标识（按配置顺序去重），供批量失效使用。
func (c *Config) ActionIDs() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, filter := range c.Filters {
		for _, id := range filter.Actions {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// FilterNames 返回过滤器名称摘要，例如 site:2，供启动日志使用。
func FilterNames(filters []FilterConfig) []string {
	if len(filters) == 0 {
		return nil
	}
	result := make([]string, len(filters))
	for i, filter := range filters {
		result[i] = fmt.Sprintf("%s:%d", filter.Name, len(filter.Actions))
	}
	return result
}
