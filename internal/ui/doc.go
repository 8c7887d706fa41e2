// Package ui decides how loom writes to the terminal.
//
// Output goes through a colorprofile writer, so styled text is downsampled
// for the terminal at hand and stripped entirely when stdout is a pipe or
// NO_COLOR is set. Listings render as tables on a terminal and as
// tab-separated rows otherwise. Rendering itself lives in [static] and
// the palette in [styles].
package ui
