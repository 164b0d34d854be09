package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.WebRoot) == "" {
		return newFieldError("Global.WebRoot", "不能为空")
	}
	if strings.TrimSpace(g.HashSalt) == "" {
		return newFieldError("Global.HashSalt", "不能为空")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", err.Error())
	}
	if err := validateBaseURL(g.BaseURL); err != nil {
		return fmt.Errorf("Global.BaseURL: %w", err)
	}

	if len(c.Filters) == 0 {
		return errors.New("至少需要配置一个 Filter")
	}

	seenFilters := map[string]struct{}{}
	boundActions := map[string]string{}
	for i := range c.Filters {
		filter := &c.Filters[i]
		if filter.Name == "" {
			return newFieldError("Filter[].Name", "不能为空")
		}
		if _, exists := seenFilters[filter.Name]; exists {
			return newFieldError(filterField(filter.Name, "Name"), "重复")
		}
		seenFilters[filter.Name] = struct{}{}

		for _, action := range filter.Actions {
			if owner, exists := boundActions[action]; exists {
				return newFieldError(filterField(filter.Name, "Actions"),
					fmt.Sprintf("%s 已绑定到 Filter[%s]", action, owner))
			}
			boundActions[action] = filter.Name
		}
		for _, extra := range filter.ExtraCaches {
			if strings.TrimSpace(extra) == "" || strings.ContainsAny(extra, "\r\n") {
				return newFieldError(filterField(filter.Name, "ExtraCaches"), "条目不能为空或包含换行")
			}
		}
	}

	seenPages := map[string]struct{}{}
	seenRoutes := map[string]string{}
	for i := range c.Pages {
		page := &c.Pages[i]
		if page.Name == "" {
			return newFieldError("Page[].Name", "不能为空")
		}
		if _, exists := seenPages[page.Name]; exists {
			return newFieldError(pageField(page.Name, "Name"), "重复")
		}
		seenPages[page.Name] = struct{}{}

		if err := validateRoute(page.Route); err != nil {
			return fmt.Errorf("%s: %w", pageField(page.Name, "Route"), err)
		}
		if owner, exists := seenRoutes[page.Route]; exists {
			return newFieldError(pageField(page.Name, "Route"), fmt.Sprintf("与 Page[%s] 冲突", owner))
		}
		seenRoutes[page.Route] = page.Name

		if err := validatePageFile(page.File); err != nil {
			return fmt.Errorf("%s: %w", pageField(page.Name, "File"), err)
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || (strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//")) {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https 或以 / 开头的路径: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("BaseURL 缺少 Host: %s", raw)
	}
	return nil
}

func validateRoute(route string) error {
	if route == "" {
		return errors.New("Route 不能为空")
	}
	if strings.HasPrefix(route, "/-/") {
		return errors.New("/-/ 前缀保留给诊断接口")
	}
	if strings.HasSuffix(route, ".manifest") {
		return errors.New("Route 不能以 .manifest 结尾")
	}
	return nil
}

func validatePageFile(file string) error {
	if strings.TrimSpace(file) == "" {
		return errors.New("File 不能为空")
	}
	if filepath.IsAbs(file) {
		return errors.New("File 必须是 WebRoot 下的相对路径")
	}
	cleaned := filepath.Clean(file)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return errors.New("File 不允许跳出 WebRoot")
	}
	return nil
}
