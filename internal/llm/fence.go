package llm

import "strings"

const fence = "```"

// ExtractFencedPayload returns the body of the first markdown code fence in
// text, up to the last closing fence. A language tag on the opening fence
// line is dropped. Text without a fence is returned trimmed.
func ExtractFencedPayload(text string) string {
	text = strings.TrimSpace(text)

	open := strings.Index(text, fence)
	if open < 0 {
		return text
	}

	body := text[open+len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isLanguageTag(body[:nl]) {
		body = body[nl+1:]
	}

	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	return !strings.ContainsAny(s, "{[\"")
}
