// Package pipeline orchestrates subtitle generation: it splits audio into
// chunks, runs voice activity detection, recognition, speaker
// identification, text normalization and translation per voiced range, and
// normalizes the assembled segment list. Chunks are processed by a bounded
// worker pool; a separate real-time entry point accepts short buffers from
// a low-latency caller and processes them in the background.
package pipeline
