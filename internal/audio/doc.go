// Package audio handles PCM sample buffers: splitting long recordings into
// overlapping analysis chunks positioned on the global millisecond timeline,
// and encoding/decoding mono 16-bit WAV for external recognizers.
package audio
