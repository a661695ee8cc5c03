package fixer

import (
	"path/filepath"
	"strings"

	"github.com/hupe1980/agentcore/core"
)

// Replay computes the intended final content of a file by applying each
// rewrite invocation's declared find/replace pair in order against the
// pre-edit content. The replay is independent of what the underlying tool
// actually wrote, so the fixer sees the model's intent even when an edit
// partially failed.
func Replay(preEdit string, invocations []core.ToolInvocation) string {
	content := preEdit

	for _, inv := range invocations {
		find := inv.Input["find"]
		if find == "" {
			continue
		}

		content = strings.Replace(content, find, inv.Input["replace"], 1)
	}

	return content
}

// defaultExtensions lists the file extensions the auto-fix service supports.
var defaultExtensions = map[string]bool{
	".go":   true,
	".js":   true,
	".jsx":  true,
	".ts":   true,
	".tsx":  true,
	".py":   true,
	".rb":   true,
	".rs":   true,
	".java": true,
	".c":    true,
	".cc":   true,
	".cpp":  true,
	".h":    true,
}

func supportedPath(extensions map[string]bool, path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}
