// Package corpus generates deterministic sample inputs for tests and
// benchmarks, so that nothing depends on fixture files.
package corpus

import "math/rand"

var words = []string{
	"the", "of", "and", "light", "rays", "which", "is", "in", "that", "by",
	"refraction", "glass", "colours", "prism", "are", "be", "reflexion",
	"experiment", "to", "from", "same", "this", "with", "as", "were", "it",
	"lens", "image", "paper", "sun", "hole", "red", "violet", "yellow",
	"green", "blue", "white", "difference", "angle", "incidence", "surface",
	"observed", "upon", "made", "more", "than", "or", "but", "at", "those",
}

// Text returns n bytes of word-salad English with punctuation and line
// breaks. The same seed gives the same bytes.
func Text(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, 0, n+16)
	line := 0
	for len(b) < n {
		w := words[r.Intn(len(words))]
		if r.Intn(12) == 0 {
			w = words[r.Intn(8)]
		}
		b = append(b, w...)
		line += len(w) + 1
		switch {
		case r.Intn(15) == 0:
			b = append(b, '.', '\n')
			line = 0
		case line > 70:
			b = append(b, '\n')
			line = 0
		case r.Intn(9) == 0:
			b = append(b, ',', ' ')
		default:
			b = append(b, ' ')
		}
	}
	return b[:n]
}

// Random returns n bytes that do not compress.
func Random(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	r.Read(b)
	return b
}

// Runs returns n bytes made of runs of repeated bytes, with run lengths up
// to 600 so that matches longer than 258 bytes occur.
func Runs(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, 0, n)
	for len(b) < n {
		c := byte(r.Intn(4)) + 'a'
		k := 1 + r.Intn(600)
		for i := 0; i < k && len(b) < n; i++ {
			b = append(b, c)
		}
	}
	return b
}

// Mixed alternates text, random and run sections of up to 20000 bytes.
func Mixed(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, 0, n)
	for i := int64(0); len(b) < n; i++ {
		k := 1 + r.Intn(20000)
		if k > n-len(b) {
			k = n - len(b)
		}
		switch r.Intn(3) {
		case 0:
			b = append(b, Text(k, seed+i)...)
		case 1:
			b = append(b, Random(k, seed+i)...)
		default:
			b = append(b, Runs(k, seed+i)...)
		}
	}
	return b
}
