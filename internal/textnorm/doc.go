// Package textnorm restores punctuation and capitalization on raw
// recognized text. Normalization is deterministic and idempotent.
package textnorm
