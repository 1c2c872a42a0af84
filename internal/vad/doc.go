// Package vad provides energy-based Voice Activity Detection.
// It slides a small analysis window across a chunk of PCM samples with 50%
// stride and collapses consecutive voiced windows into voice ranges.
package vad
