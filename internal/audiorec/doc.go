// Package audiorec manages the external ffmpeg process that records
// system audio from a PulseAudio monitor source into a WAV file. The
// recorder owns the process lifecycle: startup liveness checking,
// signal-based pause and resume, and bounded-time shutdown.
package audiorec
