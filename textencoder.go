package pack

import "strconv"

// A TextEncoder is an Encoder that writes the LZ77 parse in readable form:
// literals as themselves and matches as <Length,Distance>. A literal '<' is
// doubled so the output can be read back unambiguously. It is meant for
// looking at what a MatchFinder does.
type TextEncoder struct{}

func (TextEncoder) Header(dst []byte) []byte { return dst }

func (TextEncoder) Reset() {}

func appendLiterals(dst, lit []byte) []byte {
	for _, c := range lit {
		if c == '<' {
			dst = append(dst, '<')
		}
		dst = append(dst, c)
	}
	return dst
}

func (TextEncoder) Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte {
	pos := 0
	for _, m := range matches {
		dst = appendLiterals(dst, src[pos:pos+m.Unmatched])
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		dst = append(dst, '<')
		dst = strconv.AppendInt(dst, int64(m.Length), 10)
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(m.Distance), 10)
		dst = append(dst, '>')
		pos += m.Length
	}
	return appendLiterals(dst, src[pos:])
}
