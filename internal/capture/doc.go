// Package capture runs the screen recording loop: frames are pulled
// from an X11 grabber at a fixed cadence and handed to a frame writer,
// normally an ffmpeg process encoding raw BGR frames from stdin. The
// loop tracks dropped frames, tolerates transient grab failures, and
// guarantees the writer is finalized exactly once no matter how the
// recording ends.
package capture
