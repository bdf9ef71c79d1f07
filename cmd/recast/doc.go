// Command recast records the screen together with system audio and
// merges both into a single file.
package main
