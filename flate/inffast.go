package flate

// fast decodes tokens while the window has room for the longest match and
// at least 10 input bytes remain, which covers any single token. It leaves
// the same state the general loop would, and returns whole unused bytes
// to the input on the way out. It must be entered between symbols.
func (f *Inflater) fast() {
	br := &f.br
	w := &f.win
	start := br.pos
	defer func() {
		br.unread(br.pos - start)
	}()

	for {
		w.wrap()
		if w.space() < maxMatchLength || len(br.src)-br.pos < 10 {
			return
		}

		br.fill(20)
		tbase, twidth := f.litRoot, f.litBits
		e := f.tab[tbase+int(br.hold&mask32(twidth))]
		for e.op == opLink {
			br.drop(uint(e.bits))
			e = f.tab[int(e.val)+int(br.hold&mask32(uint(e.extra)))]
		}
		br.drop(uint(e.bits))

		switch e.op {
		case opLiteral:
			w.putByte(byte(e.val))
			continue
		case opEnd:
			f.endBlock()
			return
		case opBase:
		default:
			f.fail("invalid literal/length code")
			return
		}
		length := int(e.val) + int(br.take(uint(e.extra)))

		br.fill(15)
		e = f.tab[f.distRoot+int(br.hold&mask32(f.distBits))]
		for e.op == opLink {
			br.drop(uint(e.bits))
			e = f.tab[int(e.val)+int(br.hold&mask32(uint(e.extra)))]
		}
		br.drop(uint(e.bits))
		if e.op != opBase {
			f.fail("invalid distance code")
			return
		}
		br.fill(uint(e.extra))
		dist := int(e.val) + int(br.take(uint(e.extra)))
		if dist > w.have {
			f.fail("invalid distance too far back")
			return
		}
		w.copyMatch(dist, length)
	}
}
