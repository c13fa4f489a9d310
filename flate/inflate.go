package flate

import "github.com/pkg/errors"

type inflateState uint8

const (
	stateHeader    inflateState = iota // block header
	stateStoredLen                     // LEN and NLEN of a stored block
	stateStored                        // copying stored bytes
	stateTable                         // HLIT, HDIST, HCLEN
	stateCodeLens                      // code length code lengths
	stateLens                          // literal/length and distance code lengths
	stateLen                           // literal/length symbol
	stateLenExt                        // length extra bits
	stateDist                          // distance symbol
	stateDistExt                       // distance extra bits
	stateCopy                          // copying a match
	stateLit                           // writing a literal
	stateDry                           // handing out the rest of the window
	stateDone
	stateBad
)

// An Inflater decodes a raw DEFLATE stream one Step at a time. Everything
// needed to resume lives in the struct, so input and output may be supplied
// in pieces of any size.
type Inflater struct {
	state inflateState
	last  bool
	err   error

	br  bitReader
	win window
	tb  tableBuilder

	// stored block
	left int

	// dynamic block header
	nlen, ndist, ncode int
	have               int
	lens               [lCodes + dCodes]uint8
	clens              [numCodeLens]uint8
	arena              []entry

	// tables of the current block
	tab              []entry
	litRoot, distRoot int
	litBits, distBits uint

	// symbol in progress: the table being walked and the token fields
	tbase  int
	twidth uint
	length int
	dist   int
	extra  uint
	lit    byte

	// output of the current Step
	dst []byte
	out int

	totalIn, totalOut int64
}

// NewInflater returns an Inflater with a history window of 1<<windowBits
// bytes. windowBits must be between 8 and 15.
func NewInflater(windowBits int) (*Inflater, error) {
	if windowBits < 8 || windowBits > 15 {
		return nil, errors.Wrapf(ErrStream, "invalid window size %d", windowBits)
	}
	f := &Inflater{
		win:   newWindow(uint(windowBits)),
		arena: make([]entry, 0, 1024),
	}
	return f, nil
}

// NewInflaterDict is like NewInflater with a 32 KiB window, preloaded with
// dict as history.
func NewInflaterDict(dict []byte) *Inflater {
	f, _ := NewInflater(15)
	f.win.preset(dict)
	return f
}

// Reset prepares f to decode a new stream, keeping its buffers.
func (f *Inflater) Reset() {
	f.state = stateHeader
	f.last = false
	f.err = nil
	f.br.reset()
	f.win.reset()
	f.arena = f.arena[:0]
	f.tab = nil
	f.dst = nil
	f.out = 0
	f.totalIn, f.totalOut = 0, 0
}

// SetDictionary loads dict as history. It is only allowed before any data
// has been decoded.
func (f *Inflater) SetDictionary(dict []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.state != stateHeader || f.totalIn != 0 || f.br.nbits != 0 {
		return ErrDictionary
	}
	f.win.preset(dict)
	return nil
}

// TotalIn is the number of compressed bytes consumed so far.
func (f *Inflater) TotalIn() int64 { return f.totalIn }

// TotalOut is the number of decompressed bytes produced so far.
func (f *Inflater) TotalOut() int64 { return f.totalOut }

// Step decodes from src into dst. It returns the number of bytes written to
// dst and consumed from src. StatusOK means progress was made; StatusNeedInput
// and StatusNeedOutput mean nothing could be done with these buffers. Data
// and stream errors are sticky.
//
// Once StatusStreamEnd is returned, src[nSrc:] holds whatever followed the
// compressed stream.
func (f *Inflater) Step(dst, src []byte) (nDst, nSrc int, status Status, err error) {
	if f.err != nil {
		return 0, 0, statusOf(f.err), f.err
	}
	f.br.src, f.br.pos = src, 0
	f.dst, f.out = dst, 0

	blocked, err := f.run()
	f.flushWindow()

	nDst, nSrc = f.out, f.br.pos
	f.br.src, f.dst = nil, nil
	f.totalIn += int64(nSrc)
	f.totalOut += int64(nDst)

	switch {
	case err != nil:
		return nDst, nSrc, statusOf(err), err
	case f.state == stateDone && f.win.pending() == 0:
		return nDst, nSrc, StatusStreamEnd, nil
	case nDst > 0 || nSrc > 0:
		return nDst, nSrc, StatusOK, nil
	}
	return 0, 0, blocked, nil
}

func statusOf(err error) Status {
	if _, ok := err.(*DataError); ok {
		return StatusDataError
	}
	return StatusStreamError
}

func (f *Inflater) fail(reason string) error {
	f.state = stateBad
	f.err = &DataError{Offset: f.totalIn + int64(f.br.pos), Reason: reason}
	return f.err
}

func (f *Inflater) flushWindow() {
	f.out += f.win.flush(f.dst[f.out:])
}

// room returns the contiguous window space, draining the window into dst
// when it is full.
func (f *Inflater) room() int {
	f.win.wrap()
	if n := f.win.space(); n > 0 {
		return n
	}
	f.flushWindow()
	f.win.wrap()
	return f.win.space()
}

func (f *Inflater) beginLit() {
	f.tbase, f.twidth = f.litRoot, f.litBits
	f.state = stateLen
}

func (f *Inflater) beginDist() {
	f.tbase, f.twidth = f.distRoot, f.distBits
	f.state = stateDist
}

func (f *Inflater) endBlock() {
	if f.last {
		f.state = stateDry
	} else {
		f.state = stateHeader
	}
}

// decode resolves the next symbol of the table selected by tbase and twidth,
// following links. The returned entry's bits have not been dropped.
func (f *Inflater) decode() (entry, bool) {
	br := &f.br
	for {
		e := f.tab[f.tbase+int(br.hold&mask32(f.twidth))]
		if uint(e.bits) > br.nbits {
			if !br.more() {
				return e, false
			}
			continue
		}
		if e.op != opLink {
			return e, true
		}
		br.drop(uint(e.bits))
		f.tbase, f.twidth = int(e.val), uint(e.extra)
	}
}

// run advances the state machine until it is blocked on input or output,
// the stream ends, or an error occurs.
func (f *Inflater) run() (Status, error) {
	br := &f.br
	for {
		switch f.state {
		case stateHeader:
			if !br.need(3) {
				return StatusNeedInput, nil
			}
			f.last = br.take(1) == 1
			switch br.take(2) {
			case storedBlock:
				br.alignToByte()
				f.state = stateStoredLen
			case staticTrees:
				f.tab = fixedArena
				f.litRoot, f.litBits = fixedLitRoot, fixedLitBits
				f.distRoot, f.distBits = fixedDistRoot, fixedDistBits
				f.beginLit()
			case dynTrees:
				f.state = stateTable
			default:
				return 0, f.fail("invalid block type")
			}

		case stateStoredLen:
			if !br.need(32) {
				return StatusNeedInput, nil
			}
			n := br.hold & 0xffff
			if (^br.hold>>16)&0xffff != n {
				return 0, f.fail("invalid stored block lengths")
			}
			br.drop(32)
			f.left = int(n)
			if f.left != 0 {
				f.state = stateStored
			} else {
				f.endBlock()
			}

		case stateStored:
			for f.left > 0 {
				m := f.room()
				if m == 0 {
					return StatusNeedOutput, nil
				}
				if br.nbits >= 8 {
					f.win.putByte(byte(br.take(8)))
					f.left--
					continue
				}
				avail := len(br.src) - br.pos
				if avail == 0 {
					return StatusNeedInput, nil
				}
				n := min(f.left, m, avail)
				copy(f.win.buf[f.win.write:], br.src[br.pos:br.pos+n])
				f.win.commit(n)
				br.pos += n
				f.left -= n
			}
			f.endBlock()

		case stateTable:
			if !br.need(14) {
				return StatusNeedInput, nil
			}
			f.nlen = int(br.take(5)) + 257
			f.ndist = int(br.take(5)) + 1
			f.ncode = int(br.take(4)) + 4
			if f.nlen > lCodes || f.ndist > dCodes {
				return 0, f.fail("too many length or distance symbols")
			}
			f.have = 0
			f.state = stateCodeLens

		case stateCodeLens:
			for f.have < f.ncode {
				if !br.need(3) {
					return StatusNeedInput, nil
				}
				f.clens[codeOrder[f.have]] = uint8(br.take(3))
				f.have++
			}
			for ; f.have < numCodeLens; f.have++ {
				f.clens[codeOrder[f.have]] = 0
			}
			f.arena = f.arena[:0]
			root, bits, err := f.tb.build(&f.arena, f.clens[:], numCodeLens, nil, nil, maxBLBits)
			if err != nil || bits == 0 {
				return 0, f.fail("invalid code lengths set")
			}
			f.tab = f.arena
			f.litRoot, f.litBits = root, bits
			f.have = 0
			f.beginLit()
			f.state = stateLens

		case stateLens:
			if err := f.readLens(); err != nil {
				return 0, err
			}
			if f.have < f.nlen+f.ndist {
				return StatusNeedInput, nil
			}
			if err := f.buildDynamic(); err != nil {
				return 0, err
			}
			f.beginLit()

		case stateLen:
			// The fast loop starts from the root table, so it may only run
			// between symbols, never inside a suspended sub-table lookup.
			if f.tbase == f.litRoot && f.twidth == f.litBits &&
				f.room() >= maxMatchLength && len(br.src)-br.pos >= 10 {
				f.fast()
				continue
			}
			e, ok := f.decode()
			if !ok {
				return StatusNeedInput, nil
			}
			br.drop(uint(e.bits))
			switch e.op {
			case opLiteral:
				f.lit = byte(e.val)
				f.state = stateLit
			case opBase:
				f.length = int(e.val)
				f.extra = uint(e.extra)
				f.state = stateLenExt
			case opEnd:
				f.endBlock()
			default:
				return 0, f.fail("invalid literal/length code")
			}

		case stateLenExt:
			if !br.need(f.extra) {
				return StatusNeedInput, nil
			}
			f.length += int(br.take(f.extra))
			f.beginDist()

		case stateDist:
			e, ok := f.decode()
			if !ok {
				return StatusNeedInput, nil
			}
			br.drop(uint(e.bits))
			if e.op != opBase {
				return 0, f.fail("invalid distance code")
			}
			f.dist = int(e.val)
			f.extra = uint(e.extra)
			f.state = stateDistExt

		case stateDistExt:
			if !br.need(f.extra) {
				return StatusNeedInput, nil
			}
			f.dist += int(br.take(f.extra))
			if f.dist > f.win.have {
				return 0, f.fail("invalid distance too far back")
			}
			f.state = stateCopy

		case stateCopy:
			for f.length > 0 {
				m := f.room()
				if m == 0 {
					return StatusNeedOutput, nil
				}
				n := min(m, f.length)
				f.win.copyMatch(f.dist, n)
				f.length -= n
			}
			f.beginLit()

		case stateLit:
			if f.room() == 0 {
				return StatusNeedOutput, nil
			}
			f.win.putByte(f.lit)
			f.beginLit()

		case stateDry:
			f.flushWindow()
			if f.win.pending() > 0 {
				return StatusNeedOutput, nil
			}
			f.state = stateDone

		case stateDone:
			return StatusStreamEnd, nil

		default:
			return 0, f.err
		}
	}
}

// readLens decodes code lengths with the code length table until all
// nlen+ndist are known or the input runs out.
func (f *Inflater) readLens() error {
	br := &f.br
	total := f.nlen + f.ndist
	for f.have < total {
		e, ok := f.decode()
		if !ok {
			return nil
		}
		if e.op != opLiteral {
			return f.fail("invalid code lengths set")
		}
		sym := int(e.val)
		if sym < 16 {
			br.drop(uint(e.bits))
			f.lens[f.have] = uint8(sym)
			f.have++
			f.tbase, f.twidth = f.litRoot, f.litBits
			continue
		}

		nextra, rep := uint(7), 11
		switch sym {
		case rep3to6:
			nextra, rep = 2, 3
		case repz3to10:
			nextra, rep = 3, 3
		}
		if !br.need(uint(e.bits) + nextra) {
			return nil
		}
		br.drop(uint(e.bits))
		rep += int(br.take(nextra))
		f.tbase, f.twidth = f.litRoot, f.litBits

		var prev uint8
		if sym == rep3to6 {
			if f.have == 0 {
				return f.fail("invalid bit length repeat")
			}
			prev = f.lens[f.have-1]
		}
		if f.have+rep > total {
			return f.fail("invalid bit length repeat")
		}
		for ; rep > 0; rep-- {
			f.lens[f.have] = prev
			f.have++
		}
	}
	return nil
}

func (f *Inflater) buildDynamic() error {
	if f.lens[endOfBlock] == 0 {
		return f.fail("invalid code -- missing end-of-block")
	}
	f.arena = f.arena[:0]
	var err error
	f.litRoot, f.litBits, err = f.tb.build(&f.arena, f.lens[:f.nlen], endOfBlock+1, lengthBase, lengthExtra, 9)
	if err != nil {
		return f.fail("invalid literal/lengths set")
	}
	f.distRoot, f.distBits, err = f.tb.build(&f.arena, f.lens[f.nlen:f.nlen+f.ndist], 0, distBase, distExtra, 6)
	if err != nil {
		return f.fail("invalid distances set")
	}
	if f.distBits == 0 && f.nlen > endOfBlock+1 {
		return f.fail("empty distance tree with lengths")
	}
	f.tab = f.arena
	return nil
}
