package main

import (
	"math/rand"
)

// shuffleSentences returns a uniformly random permutation of the entries
// via Fisher-Yates. The input slice is left untouched; the permuted order
// becomes the public index sentences are guessed by, fixed for the rest of
// the game.
func shuffleSentences(in []SentenceEntry) []SentenceEntry {
	out := make([]SentenceEntry, len(in))
	copy(out, in)

	for i := len(out) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
