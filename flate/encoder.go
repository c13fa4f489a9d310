package flate

import "github.com/deflatekit/pack"

// maxStoredSpan keeps every block small enough to fall back to a stored
// block.
const maxStoredSpan = 0xffff - maxMatchLength

// NewEncoder returns a pack.Encoder that writes raw DEFLATE. Each block is
// sent stored, with the static codes, or with codes built for it, whichever
// is shortest.
func NewEncoder() pack.Encoder {
	e := new(encoder)
	e.bw.init()
	return e
}

type encoder struct {
	bw blockWriter
}

func (e *encoder) Header(dst []byte) []byte {
	return dst
}

func (e *encoder) Reset() {
	e.bw.init()
}

func (e *encoder) Encode(dst []byte, src []byte, matches []pack.Match, lastBlock bool) []byte {
	e.bw.out = dst
	start, pos := 0, 0
	flush := func() {
		e.bw.flushBlock(src[start:pos], BestSpeed, false)
		start = pos
	}

	literal := func(c byte) {
		full := e.bw.tallyLit(c)
		pos++
		if full || pos-start >= maxStoredSpan {
			flush()
		}
	}

	for _, m := range matches {
		for i := 0; i < m.Unmatched; i++ {
			literal(src[pos])
		}
		length := m.Length
		if m.Distance < 1 || m.Distance > windowSize {
			// Not expressible; send the bytes as literals.
			for ; length > 0; length-- {
				literal(src[pos])
			}
			continue
		}
		for length >= minMatchLength {
			n := length
			if n > maxMatchLength {
				n = maxMatchLength
				if length-n < minMatchLength {
					n = length - minMatchLength
				}
			}
			full := e.bw.tallyMatch(m.Distance, n-minMatchLength)
			pos += n
			length -= n
			if full || pos-start >= maxStoredSpan {
				flush()
			}
		}
		for ; length > 0; length-- {
			literal(src[pos])
		}
	}
	for pos < len(src) {
		literal(src[pos])
	}

	if lastBlock || e.bw.lastLit > 0 {
		e.bw.flushBlock(src[start:pos], BestSpeed, lastBlock)
	}
	e.bw.flushBits()
	dst = e.bw.out
	e.bw.out = nil
	return dst
}
