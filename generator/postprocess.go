package generator

import (
	"strings"
)

// PostProcess 校验模型输出，空内容视为失败。
func PostProcess(raw string) (string, error) {
	text := unquote(strings.TrimSpace(stripFence(strings.TrimSpace(raw))))
	if text == "" {
		return "", newServiceError(ErrEmptyResponse, 0, "", nil)
	}
	return text, nil
}

// Some models wrap the whole answer in a code fence despite being told not to.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(strings.TrimSpace(body[:nl]), " \t") {
		// drop the language tag line
		body = body[nl+1:]
	}
	return body
}

// 模型常把整段结果包在引号里（与提示词的格式一致），去掉最外层一对。
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && strings.Count(s, `"`) == 2 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
