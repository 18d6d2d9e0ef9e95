package vulkan

import "strings"

const (
	queueFamilyIgnored = ^uint32(0)
	wholeSize          = ^uint64(0)
)

// safeString terminates s for the C side.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// isNull reports whether a native handle is VK_NULL_HANDLE.
func isNull[H comparable](h H) bool {
	var null H
	return h == null
}
