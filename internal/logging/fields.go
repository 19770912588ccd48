package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CacheFields 提供缓存操作与 key 字段，供 FileCache 记录被吞掉的错误。
func CacheFields(op, key string) logrus.Fields {
	return logrus.Fields{
		"action": "cache_" + op,
		"key":    key,
	}
}

// RequestFields 提供路由名称/方法/路径字段，供请求日志复用。
func RequestFields(method, path, routeName, requestID string) logrus.Fields {
	return logrus.Fields{
		"method":     method,
		"path":       path,
		"route":      routeName,
		"request_id": requestID,
	}
}
