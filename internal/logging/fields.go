package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ManifestFields 提供 manifest 标识/文件名字段，供生成、失效与诊断日志复用。
func ManifestFields(action, id, filename string) logrus.Fields {
	return logrus.Fields{
		"action":      action,
		"manifest_id": id,
		"filename":    filename,
	}
}

// RequestFields 提供页面请求的公共字段。
func RequestFields(requestID, page, route string, filters int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"page":       page,
		"route":      route,
		"filters":    filters,
	}
}
