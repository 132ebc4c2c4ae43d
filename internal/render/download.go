package render

import "strings"

var extensions = map[string]string{
	"javascript": "js",
	"typescript": "ts",
	"python":     "py",
	"java":       "java",
	"cpp":        "cpp",
	"csharp":     "cs",
	"php":        "php",
	"ruby":       "rb",
	"go":         "go",
	"rust":       "rs",
	"html":       "html",
	"css":        "css",
	"sql":        "sql",
	"bash":       "sh",
}

// Extension maps a fence language to a file extension, "txt" when unknown.
func Extension(language string) string {
	if ext, ok := extensions[strings.ToLower(language)]; ok {
		return ext
	}
	return "txt"
}

// Filename is the suggested download name of a code block.
func Filename(language string) string {
	return "code." + Extension(language)
}
