// Package pulse manages the PulseAudio routing a recording session needs:
// a virtual null sink that receives the captured application streams, and a
// loopback from the sink's monitor back to real hardware so audio stays
// audible while recording.
//
// Every pactl side effect created by Setup is torn down by Cleanup, which is
// idempotent and tolerates partially-created state.
package pulse
