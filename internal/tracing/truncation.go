package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500

	// MaxRedisLength Redis键值最大长度
	MaxRedisLength = 100

	// MaxObjectKeyLength 对象存储键最大长度
	MaxObjectKeyLength = 120

	// MaxJobDescriptionLength 岗位描述最大长度
	MaxJobDescriptionLength = 150
)

// maskPIILookup 需要掩码处理的关键字
var maskPIILookup = []string{
	"email", "phone", "password", "id_card", "address",
	"name", "age", "secret", "token", "api_key",
	"身份证", "地址", "姓名", "年龄",
}

// SafeAttributeValue 属性名包含敏感关键字时掩码，否则按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	// "张三" -> "张*", "王小明" -> "王*明"
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// 保留前后各2个字符: "13812345678" -> "13*******78"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 截断字符串，保留首尾，中间以省略号连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL 安全处理SQL语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey 安全处理Redis键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeObjectKey 安全处理对象存储键
func SafeObjectKey(key string) string {
	return TruncateString(key, MaxObjectKeyLength)
}

// SafeJobDescription 安全处理岗位描述
func SafeJobDescription(content string) string {
	return TruncateString(content, MaxJobDescriptionLength)
}
