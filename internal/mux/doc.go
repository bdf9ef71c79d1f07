// Package mux merges the captured video and audio tracks into the final
// container with ffmpeg. It compensates the configured audio delay,
// reports merge progress parsed from ffmpeg's machine-readable progress
// stream, and kills a merge that stops making progress.
package mux
