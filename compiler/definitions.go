package compiler

import (
	"regexp"
	"strings"

	"github.com/andewx/dieselcompute/backend"
)

// ApplyDefinitions replaces every whole-identifier occurrence of a definition
// name with its value. Line comments are left untouched. A definition without
// a value expands to "1".
func ApplyDefinitions(source string, defs []backend.KernelDefinition) string {
	if len(defs) == 0 {
		return source
	}
	values := make(map[string]string, len(defs))
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			continue
		}
		if _, dup := values[d.Name]; !dup {
			names = append(names, regexp.QuoteMeta(d.Name))
		}
		value := d.Value
		if value == "" {
			value = "1"
		}
		values[d.Name] = value
	}
	if len(names) == 0 {
		return source
	}
	re := regexp.MustCompile(`\b(?:` + strings.Join(names, "|") + `)\b`)

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		code, comment := line, ""
		if idx := strings.Index(line, "//"); idx >= 0 {
			code, comment = line[:idx], line[idx:]
		}
		lines[i] = re.ReplaceAllStringFunc(code, func(name string) string {
			return values[name]
		}) + comment
	}
	return strings.Join(lines, "\n")
}
