//go:build !windows

package colors

import "fmt"

// enabled tracks whether ANSI sequences should be emitted at all.
var enabled = true

// EnableColor turns ANSI coloring on. Terminals on non-windows systems support the escape codes natively.
func EnableColor() {
	enabled = true
}

// DisableColor turns ANSI coloring off, e.g. when the user passes --no-color or output is redirected.
func DisableColor() {
	enabled = false
}

// Colorize returns the string s wrapped in ANSI code c.
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
