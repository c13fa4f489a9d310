package pack

// An AbsoluteMatch is like a Match, but it stores indexes into the byte
// stream instead of lengths.
type AbsoluteMatch struct {
	// Start is the index of the first byte.
	Start int

	// End is the index of the byte after the last byte
	// (so that End - Start = Length).
	End int

	// Match is the index of the previous data that matches
	// (Start - Match = Distance).
	Match int
}

func (m AbsoluteMatch) length() int { return m.End - m.Start }

// A Searcher is the source of matches for a Parser. It only looks for
// matches at one position at a time. A type that uses a Parser to implement
// MatchFinder can implement Searcher as well, and pass itself to the Parser.
type Searcher interface {
	// Search looks for matches at pos and appends them to dst.
	// In each match, Start and End must fall within the interval [min,max),
	// and Match < Start < End.
	Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch
}

// A Parser chooses which matches to use to compress the data.
type Parser interface {
	// Parse gets matches from src, chooses which ones to use, and appends
	// them to dst. The matches cover the range of bytes from start to end.
	Parse(dst []Match, src Searcher, start, end int) []Match
}

// DefaultMinLength is the shortest match a parser accepts when MinLength
// is 0.
const DefaultMinLength = 4

// A GreedyParser implements the greedy matching strategy: It goes from start
// to end, choosing the longest match at each position.
type GreedyParser struct {
	// MinLength is the shortest match worth emitting. DEFLATE can encode
	// matches of 3 bytes, but they rarely pay for their distance code.
	MinLength int

	matchCache []AbsoluteMatch
}

func minLength(n int) int {
	if n <= 0 {
		return DefaultMinLength
	}
	return n
}

func (p *GreedyParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	min := minLength(p.MinLength)
	matches := p.matchCache[:0]
	s := start
	nextEmit := start
	var m AbsoluteMatch

mainLoop:
	for {
		nextS := s
		for {
			s = nextS
			nextS = s + 1
			if nextS >= end {
				break mainLoop
			}

			matches = src.Search(matches[:0], s, nextEmit, end)
			m = longestMatch(matches)
			if m.length() >= min {
				break
			}
		}

		dst = append(dst, Match{
			Unmatched: m.Start - nextEmit,
			Length:    m.length(),
			Distance:  m.Start - m.Match,
		})
		s = m.End
		nextEmit = s
	}

	if nextEmit < end {
		dst = append(dst, Match{
			Unmatched: end - nextEmit,
		})
	}
	p.matchCache = matches[:0]
	return dst
}

// A LazyParser defers each match by one position: if the match starting at
// the next byte is longer, the current byte is sent as a literal instead.
type LazyParser struct {
	MinLength int

	// GoodEnough is a match length that is taken without looking ahead.
	// 0 means always look ahead.
	GoodEnough int

	matchCache []AbsoluteMatch
}

func (p *LazyParser) search(src Searcher, pos, min, max int) AbsoluteMatch {
	p.matchCache = src.Search(p.matchCache[:0], pos, min, max)
	return longestMatch(p.matchCache)
}

func (p *LazyParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	min := minLength(p.MinLength)
	nextEmit := start
	s := start

	for s+1 < end {
		m := p.search(src, s, nextEmit, end)
		if m.length() < min {
			s++
			continue
		}
		for p.GoodEnough == 0 || m.length() < p.GoodEnough {
			if m.End+1 >= end {
				break
			}
			next := p.search(src, m.Start+1, nextEmit, end)
			if next.length() <= m.length() || next.Start <= m.Start {
				break
			}
			m = next
		}

		dst = append(dst, Match{
			Unmatched: m.Start - nextEmit,
			Length:    m.length(),
			Distance:  m.Start - m.Match,
		})
		s = m.End
		nextEmit = s
	}

	if nextEmit < end {
		dst = append(dst, Match{
			Unmatched: end - nextEmit,
		})
	}
	return dst
}

func longestMatch(matches []AbsoluteMatch) AbsoluteMatch {
	var longest AbsoluteMatch

	for _, m := range matches {
		if m.length() > longest.length() {
			longest = m
		}
	}

	return longest
}
