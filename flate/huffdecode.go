package flate

import "github.com/pkg/errors"

type entryOp uint8

const (
	opLiteral entryOp = iota // val is a literal byte
	opBase                   // val is a length or distance base, extra is its extra bit count
	opLink                   // val is the arena index of a sub-table of 1<<extra entries
	opEnd                    // end of block
	opInvalid
)

// An entry is one slot of a decode table. bits is the number of input bits
// the slot consumes; for links it is the width of the table holding them.
type entry struct {
	op    entryOp
	extra uint8
	bits  uint8
	val   uint16
}

var (
	errOversubscribed = errors.New("oversubscribed code lengths")
	errIncomplete     = errors.New("incomplete code lengths")
)

// tableBuilder turns code lengths into linked lookup tables. Each Inflater
// owns one, so its scratch space is never shared.
type tableBuilder struct {
	count  [maxCodeBits + 1]int
	offs   [maxCodeBits + 1]int
	stack  [maxCodeBits]int
	values [numLitLen]int
}

// build appends the tables for lens to *arena and returns the index and
// width of the root table. Symbols below simple decode to themselves (256 is
// end of block); the rest map to base and extra, and symbols past the end of
// base decode as invalid.
//
// A set of lengths that does not fill the code space is rejected unless it
// holds a single code, whose unused sibling then decodes as invalid. All zero
// lengths give a one-slot table that rejects everything.
func (tb *tableBuilder) build(arena *[]entry, lens []uint8, simple int, base []uint16, extra []uint8, maxBits uint) (root int, width uint, err error) {
	c := &tb.count
	*c = [maxCodeBits + 1]int{}
	for _, l := range lens {
		c[l]++
	}
	if c[0] == len(lens) {
		root = len(*arena)
		*arena = append(*arena, entry{op: opInvalid})
		return root, 0, nil
	}

	l := int(maxBits)
	j := 1
	for ; j <= maxCodeBits; j++ {
		if c[j] != 0 {
			break
		}
	}
	k := j // shortest code
	if l < j {
		l = j
	}
	i := maxCodeBits
	for ; i > 0; i-- {
		if c[i] != 0 {
			break
		}
	}
	g := i // longest code
	if l > i {
		l = i
	}

	// Count the unused codes of the longest length.
	y := 1 << j
	for ; j < i; j, y = j+1, y<<1 {
		y -= c[j]
		if y < 0 {
			return 0, 0, errOversubscribed
		}
	}
	y -= c[i]
	if y < 0 {
		return 0, 0, errOversubscribed
	}
	// An incomplete set is accepted only when it holds a single code, of
	// any length.
	if y != 0 && len(lens)-c[0] != 1 {
		return 0, 0, errIncomplete
	}
	c[i] += y

	x := &tb.offs
	x[1] = 0
	j = 0
	for n := 2; n <= g; n++ {
		j += c[n-1]
		x[n] = j
	}
	v := tb.values[:]
	for sym, n := range lens {
		if n != 0 {
			v[x[n]] = sym
			x[n]++
		}
	}
	nv := x[g] // real codes; the fillers come after

	x[0] = 0
	code := 0
	p := 0
	h := -1
	w := -l
	u := &tb.stack
	var q, z int
	for ; k <= g; k++ {
		for a := c[k]; a > 0; a-- {
			// Open tables down to the level holding codes of length k.
			for k > w+l {
				h++
				w += l

				z = g - w
				if z > l {
					z = l
				}
				tw := k - w
				if f := 1 << tw; f > a {
					// Too few codes of length k to fill a k-w bit table:
					// grow it only while longer codes keep it full.
					f -= a
					xp := k
					if tw < z {
						for tw++; tw < z; tw++ {
							f <<= 1
							xp++
							if f <= c[xp] {
								break
							}
							f -= c[xp]
						}
					}
				}
				z = 1 << tw

				q = len(*arena)
				*arena = append(*arena, make([]entry, z)...)
				u[h] = q
				if h != 0 {
					x[h] = code
					(*arena)[u[h-1]+code>>(w-l)] = entry{op: opLink, bits: uint8(l), extra: uint8(tw), val: uint16(q)}
				} else {
					root = q
				}
			}

			e := entry{bits: uint8(k - w)}
			switch {
			case p >= nv:
				e.op = opInvalid
			case v[p] < simple:
				e.op = opLiteral
				if v[p] >= 256 {
					e.op = opEnd
				}
				e.val = uint16(v[p])
				p++
			default:
				if s := v[p] - simple; s < len(base) {
					e.op = opBase
					e.extra = extra[s]
					e.val = base[s]
				} else {
					e.op = opInvalid
				}
				p++
			}

			t := (*arena)[q : q+z]
			for f, n := 1<<(k-w), code>>w; n < z; n += f {
				t[n] = e
			}

			// Increment the bit-reversed code.
			inc := 1 << (k - 1)
			for code&inc != 0 {
				code ^= inc
				inc >>= 1
			}
			code ^= inc

			// Back out of tables that are full.
			for code&(1<<w-1) != x[h] {
				h--
				w -= l
			}
		}
	}
	return root, uint(l), nil
}
