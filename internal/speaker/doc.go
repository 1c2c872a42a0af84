// Package speaker clusters voice embeddings into persistent speaker profiles.
// Profiles are matched by cosine similarity and adapted in place with an
// exponential moving average; the match-or-create step is serialized so
// concurrent callers cannot register the same speaker twice.
package speaker
