package fixer

import "strings"

// SplitDiff breaks a multi-file unified diff into per-file sections keyed by
// target path. It accepts both git-style diffs ("diff --git" headers) and
// bare "---"/"+++" sections. Sections whose target is /dev/null (deletions)
// are dropped.
func SplitDiff(diff string) map[string]string {
	out := map[string]string{}
	lines := strings.Split(diff, "\n")

	var (
		path string
		buf  []string
	)

	flush := func() {
		if path != "" && len(buf) > 0 {
			out[path] = strings.Join(buf, "\n")
		}
		path, buf = "", nil
	}

	for i, line := range lines {
		sectionStart := strings.HasPrefix(line, "diff --git ") ||
			(path != "" && strings.HasPrefix(line, "--- ") &&
				i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "))
		if sectionStart {
			flush()
		}

		if strings.HasPrefix(line, "+++ ") {
			path = diffTarget(strings.TrimPrefix(line, "+++ "))
		}

		buf = append(buf, line)
	}

	flush()

	return out
}

// diffTarget normalizes the "+++ " header value to a plain path: the "b/"
// prefix and any trailing tab-separated metadata are stripped.
func diffTarget(raw string) string {
	if tab := strings.IndexByte(raw, '\t'); tab >= 0 {
		raw = raw[:tab]
	}

	raw = strings.TrimSpace(raw)
	if raw == "/dev/null" {
		return ""
	}

	return strings.TrimPrefix(raw, "b/")
}
