// Package subtitle defines the durable subtitle segment model, the
// post-processing passes that normalize a raw segment list (split, reading
// time, merge), and serialization to and from SRT, VTT, ASS and JSON.
package subtitle
