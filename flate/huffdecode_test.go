package flate

import "testing"

// lookup decodes the code held in the low bits of code the way the
// Inflater walks its tables, and returns the entry and the bits it used.
func lookup(tab []entry, root int, width uint, code uint32) (entry, uint) {
	used := uint(0)
	e := tab[root+int(code&mask32(width))]
	for e.op == opLink {
		used += uint(e.bits)
		code >>= e.bits
		e = tab[int(e.val)+int(code&mask32(uint(e.extra)))]
	}
	return e, used + uint(e.bits)
}

func TestBuildSimpleCode(t *testing.T) {
	for _, maxBits := range []uint{9, 2, 1} {
		var tb tableBuilder
		var arena []entry
		root, width, err := tb.build(&arena, []uint8{1, 2, 3, 3}, 4, nil, nil, maxBits)
		if err != nil {
			t.Fatal(err)
		}
		// Canonical codes 0, 10, 110, 111, read least significant bit first.
		cases := []struct {
			code uint32
			sym  uint16
			bits uint
		}{
			{0, 0, 1},
			{2, 0, 1},
			{1, 1, 2},
			{5, 1, 2},
			{3, 2, 3},
			{7, 3, 3},
		}
		for _, c := range cases {
			e, n := lookup(arena, root, width, c.code)
			if e.op != opLiteral || e.val != c.sym || n != c.bits {
				t.Errorf("maxBits %d, code %03b: got op %d val %d in %d bits, want symbol %d in %d bits",
					maxBits, c.code, e.op, e.val, n, c.sym, c.bits)
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	var tb tableBuilder
	var arena []entry
	if _, _, err := tb.build(&arena, []uint8{1, 1, 1}, 3, nil, nil, 7); err != errOversubscribed {
		t.Errorf("three 1-bit codes: got %v, want %v", err, errOversubscribed)
	}
	if _, _, err := tb.build(&arena, []uint8{1, 2}, 2, nil, nil, 7); err != errIncomplete {
		t.Errorf("1- and 2-bit code: got %v, want %v", err, errIncomplete)
	}
	if _, _, err := tb.build(&arena, []uint8{2, 2, 2, 2, 2}, 5, nil, nil, 7); err != errOversubscribed {
		t.Errorf("five 2-bit codes: got %v, want %v", err, errOversubscribed)
	}
}

func TestBuildSingleCode(t *testing.T) {
	var tb tableBuilder
	var arena []entry
	root, width, err := tb.build(&arena, []uint8{0, 1, 0}, 0, distBase, distExtra, 6)
	if err != nil {
		t.Fatal(err)
	}
	if width != 1 {
		t.Fatalf("width = %d, want 1", width)
	}
	e, n := lookup(arena, root, width, 0)
	if e.op != opBase || e.val != distBase[1] || n != 1 {
		t.Errorf("code 0: got op %d val %d in %d bits", e.op, e.val, n)
	}
	if e, _ := lookup(arena, root, width, 1); e.op != opInvalid {
		t.Errorf("unused code 1 decodes as op %d, want invalid", e.op)
	}
}

func TestBuildAllZero(t *testing.T) {
	var tb tableBuilder
	var arena []entry
	root, width, err := tb.build(&arena, make([]uint8, 30), 0, distBase, distExtra, 6)
	if err != nil {
		t.Fatal(err)
	}
	if width != 0 || arena[root].op != opInvalid {
		t.Errorf("got width %d, op %d; want an empty invalid table", width, arena[root].op)
	}
}

// Every static literal/length and distance code must decode back to its
// symbol through the fixed tables.
func TestFixedTables(t *testing.T) {
	for sym := 0; sym < numLitLen; sym++ {
		code, l := uint32(staticLTree[sym].code), uint(staticLTree[sym].len)
		e, n := lookup(fixedArena, fixedLitRoot, fixedLitBits, code)
		if n != l {
			t.Errorf("literal/length %d: used %d bits, want %d", sym, n, l)
		}
		switch {
		case sym < 256:
			if e.op != opLiteral || int(e.val) != sym {
				t.Errorf("literal %d: got op %d val %d", sym, e.op, e.val)
			}
		case sym == endOfBlock:
			if e.op != opEnd {
				t.Errorf("end of block: got op %d", e.op)
			}
		case sym < lCodes:
			s := sym - endOfBlock - 1
			if e.op != opBase || e.val != lengthBase[s] || e.extra != lengthExtra[s] {
				t.Errorf("length %d: got op %d val %d extra %d", sym, e.op, e.val, e.extra)
			}
		default:
			if e.op != opInvalid {
				t.Errorf("symbol %d: got op %d, want invalid", sym, e.op)
			}
		}
	}

	for sym := 0; sym < numDist; sym++ {
		e, n := lookup(fixedArena, fixedDistRoot, fixedDistBits, uint32(reverseBits(uint16(sym), 5)))
		if n != 5 {
			t.Errorf("distance %d: used %d bits", sym, n)
		}
		if sym < dCodes {
			if e.op != opBase || e.val != distBase[sym] || e.extra != distExtra[sym] {
				t.Errorf("distance %d: got op %d val %d extra %d", sym, e.op, e.val, e.extra)
			}
		} else if e.op != opInvalid {
			t.Errorf("distance %d: got op %d, want invalid", sym, e.op)
		}
	}
}
