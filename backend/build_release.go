//go:build !dieselcompute_debug

package backend

// DebugBuild is true when the module is built with the dieselcompute_debug tag.
const DebugBuild = false
