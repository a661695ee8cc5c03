package extract

import (
	"strings"

	"github.com/tidwall/gjson"
)

// parseAttrs parses XML-style attribute text (`key="value" key2='v2'`) into a
// map. It reports false when the text is not a well-formed attribute list.
func parseAttrs(raw string) (map[string]string, bool) {
	attrs := map[string]string{}
	i := 0
	n := len(raw)

	for i < n {
		// skip whitespace between pairs
		for i < n && isSpace(raw[i]) {
			i++
		}
		if i >= n {
			break
		}

		// attribute name
		start := i
		for i < n && isNameByte(raw[i]) {
			i++
		}
		if i == start {
			return nil, false
		}
		name := raw[start:i]

		for i < n && isSpace(raw[i]) {
			i++
		}
		if i >= n || raw[i] != '=' {
			return nil, false
		}
		i++
		for i < n && isSpace(raw[i]) {
			i++
		}
		if i >= n || (raw[i] != '"' && raw[i] != '\'') {
			return nil, false
		}

		quote := raw[i]
		i++
		var val strings.Builder
		closed := false
		for i < n {
			c := raw[i]
			if c == '\\' && i+1 < n {
				val.WriteByte(raw[i+1])
				i += 2
				continue
			}
			if c == quote {
				closed = true
				i++
				break
			}
			val.WriteByte(c)
			i++
		}
		if !closed {
			return nil, false
		}

		attrs[name] = val.String()
	}

	return attrs, true
}

// jsonAttrs flattens the top-level fields of a JSON object argument payload
// into string attributes. Non-string values keep their raw JSON encoding.
func jsonAttrs(raw string) (map[string]string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return nil, false
	}

	parsed := gjson.Parse(trimmed)
	if !parsed.IsObject() {
		return nil, false
	}

	attrs := map[string]string{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			attrs[key.String()] = value.String()
		} else {
			attrs[key.String()] = value.Raw
		}
		return true
	})

	return attrs, true
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNameStartByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
