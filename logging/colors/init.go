package colors

// init enables ANSI coloring where the platform needs an explicit opt-in.
func init() {
	EnableColor()
}
