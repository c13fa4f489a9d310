// Package pack splits LZ77 compression into interchangeable parts.
//
// A compressor has two halves:
//   - a MatchFinder that looks for repeated byte sequences, and
//   - an Encoder that writes literals and matches in a concrete format.
//
// Writer connects the two: it cuts the input into blocks, asks the
// MatchFinder for matches and hands them to the Encoder. The flate package
// provides a DEFLATE Encoder, so any MatchFinder here can produce streams
// that every inflater reads.
package pack

// A Match is the basic unit of LZ77 compression.
type Match struct {
	Unmatched int // the number of unmatched bytes since the previous match
	Length    int // the number of bytes in the matched string; it may be 0 at the end of the input
	Distance  int // how far back in the stream to copy from
}

// A MatchFinder performs the LZ77 stage of compression, looking for matches.
type MatchFinder interface {
	// FindMatches looks for matches in src, appends them to dst, and returns dst.
	// Matches may refer back into earlier calls' data since the last Reset.
	FindMatches(dst []Match, src []byte) []Match

	// Reset clears any internal state, preparing the MatchFinder to be used with
	// a new stream.
	Reset()
}

// An Encoder encodes the data in its final format.
type Encoder interface {
	// Header appends the appropriate stream header to dst.
	Header(dst []byte) []byte

	// Encode appends the encoded format of src to dst, using the match
	// information from matches. The last call for a stream has lastBlock set,
	// and src may be empty then.
	Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte

	// Reset clears any internal state, preparing the Encoder to be used with
	// a new stream.
	Reset()
}
