package config

import "fmt"

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// filterField 拼接 Filter 级字段路径，输出 Filter[xxx].Field 形式。
func filterField(name, field string) string {
	if name == "" {
		return fmt.Sprintf("Filter[].%s", field)
	}
	return fmt.Sprintf("Filter[%s].%s", name, field)
}

// pageField 拼接 Page 级字段路径，输出 Page[xxx].Field 形式。
func pageField(name, field string) string {
	if name == "" {
		return fmt.Sprintf("Page[].%s", field)
	}
	return fmt.Sprintf("Page[%s].%s", name, field)
}
