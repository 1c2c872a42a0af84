// Package recognition defines the capability interfaces consumed by the
// subtitle pipeline (speech recognizer, embedding extractor, translator,
// punctuation model), the confidence-filtering adapter that rebases
// recognition results onto the global timeline, and an HTTP-backed
// recognizer implementation.
package recognition
