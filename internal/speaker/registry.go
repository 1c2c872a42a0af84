package speaker

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
)

// ErrDimensionMismatch is returned when an embedding's dimension differs
// from the registry's configured dimension. Mismatched vectors are rejected,
// never truncated or padded.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrUnknownSpeaker is returned when a speaker ID does not exist.
var ErrUnknownSpeaker = errors.New("unknown speaker")

// Profile represents one identified speaker. Profiles are owned exclusively
// by the Registry; they are created and updated, never deleted within a
// session.
type Profile struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	AverageEmbedding []float32 `json:"-"`
	SampleCount      int       `json:"sample_count"`
	Confidence       float64   `json:"confidence"`
	FirstSeenMs      int64     `json:"first_seen_ms"`
	LastSeenMs       int64     `json:"last_seen_ms"`
}

// RegistryConfig contains configuration for speaker clustering.
type RegistryConfig struct {
	Dimension      int     // Embedding dimension D; all vectors must match
	MatchThreshold float64 // Cosine similarity above which a profile matches (typically 0.8)
	Smoothing      float64 // EMA factor alpha for embedding updates (typically 0.1)
}

// Registry clusters voice embeddings into speaker profiles.
type Registry struct {
	config RegistryConfig

	// profiles holds registration order; on exact similarity ties the
	// first-registered profile wins.
	profiles []*Profile
	byID     map[string]*Profile

	mu sync.Mutex
}

// RegistryStats represents registry statistics.
type RegistryStats struct {
	Speakers       int     `json:"speakers"`
	TotalSamples   int     `json:"total_samples"`
	MatchThreshold float64 `json:"match_threshold"`
}

// NewRegistry creates a new speaker registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", config.Dimension)
	}

	if config.MatchThreshold < 0 || config.MatchThreshold > 1 {
		return nil, fmt.Errorf("match threshold must be between 0 and 1, got %f", config.MatchThreshold)
	}

	if config.Smoothing <= 0 || config.Smoothing > 1 {
		return nil, fmt.Errorf("smoothing factor must be in (0, 1], got %f", config.Smoothing)
	}

	return &Registry{
		config: config,
		byID:   make(map[string]*Profile),
	}, nil
}

// Identify returns the speaker ID for the given embedding, either by matching
// an existing profile or by creating a new one. observedMs positions the
// observation on the global timeline for first/last-seen tracking.
//
// Match-or-create is a single critical section: concurrent callers cannot
// both decide "no match" for the same underlying speaker.
func (r *Registry) Identify(embedding []float32, observedMs int64) (string, error) {
	if len(embedding) != r.config.Dimension {
		return "", fmt.Errorf("%w: registry dimension %d, got %d",
			ErrDimensionMismatch, r.config.Dimension, len(embedding))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bestIdx := -1
	bestSim := math.Inf(-1)

	for i, p := range r.profiles {
		// Strictly-greater comparison: first-registered wins on exact ties.
		if sim := cosineSimilarity(embedding, p.AverageEmbedding); sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestSim > r.config.MatchThreshold {
		p := r.profiles[bestIdx]
		alpha := r.config.Smoothing

		for i := range p.AverageEmbedding {
			p.AverageEmbedding[i] = p.AverageEmbedding[i]*float32(1-alpha) + embedding[i]*float32(alpha)
		}

		p.SampleCount++
		p.Confidence = p.Confidence*(1-alpha) + bestSim*alpha
		if observedMs > p.LastSeenMs {
			p.LastSeenMs = observedMs
		}
		if observedMs < p.FirstSeenMs {
			p.FirstSeenMs = observedMs
		}

		return p.ID, nil
	}

	p := &Profile{
		ID:               uuid.NewString(),
		AverageEmbedding: append([]float32(nil), embedding...),
		SampleCount:      1,
		Confidence:       1,
		FirstSeenMs:      observedMs,
		LastSeenMs:       observedMs,
	}

	r.profiles = append(r.profiles, p)
	r.byID[p.ID] = p

	return p.ID, nil
}

// Rename assigns a display name to a speaker.
func (r *Registry) Rename(speakerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[speakerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSpeaker, speakerID)
	}

	p.Name = name
	return nil
}

// Profile returns a copy of the profile for the given speaker ID.
func (r *Registry) Profile(speakerID string) (Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[speakerID]
	if !ok {
		return Profile{}, false
	}
	return r.copyProfile(p), true
}

// Profiles returns copies of all profiles in registration order.
func (r *Registry) Profiles() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Profile, len(r.profiles))
	for i, p := range r.profiles {
		out[i] = r.copyProfile(p)
	}
	return out
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := 0
	for _, p := range r.profiles {
		samples += p.SampleCount
	}

	return RegistryStats{
		Speakers:       len(r.profiles),
		TotalSamples:   samples,
		MatchThreshold: r.config.MatchThreshold,
	}
}

func (r *Registry) copyProfile(p *Profile) Profile {
	out := *p
	out.AverageEmbedding = append([]float32(nil), p.AverageEmbedding...)
	return out
}

// cosineSimilarity computes the cosine similarity of two equal-length
// vectors. A zero vector yields similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
