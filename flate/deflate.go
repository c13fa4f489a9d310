package flate

import "github.com/pkg/errors"

type blockState uint8

const (
	needMore      blockState = iota // block not completed, need more input or more output
	blockDone                       // block flush performed
	finishStarted                   // finish started, need only more output at next deflate
	finishDone                      // finish done, accept no more input or output
)

// A Deflater compresses into a raw DEFLATE stream one Step at a time. It
// keeps a 32 KiB history window.
type Deflater struct {
	hashState
	bw blockWriter

	level    int
	strategy Strategy
	cfg      compressionLevel

	started   bool
	finishing bool
	lastFlush Flush
	err       error

	matchLength    int
	prevLength     int
	prevMatch      int
	matchAvailable bool

	// buffers of the current Step
	src    []byte
	srcPos int
	dst    []byte
	dstPos int

	pendingOut int

	totalIn, totalOut int64
}

// NewDeflater returns a Deflater for the given level (DefaultCompression or
// 0 through 9) and strategy.
func NewDeflater(level int, strategy Strategy) (*Deflater, error) {
	if level == DefaultCompression {
		level = 6
	}
	if level < NoCompression || level > BestCompression {
		return nil, errors.Wrapf(ErrStream, "invalid compression level %d", level)
	}
	if strategy < DefaultStrategy || strategy > HuffmanOnly {
		return nil, errors.Wrapf(ErrStream, "invalid strategy %d", strategy)
	}
	d := &Deflater{level: level, strategy: strategy, cfg: levels[level]}
	d.Reset()
	return d, nil
}

// Reset discards all state so that d can compress a new stream with the
// same settings.
func (d *Deflater) Reset() {
	d.initHash(d.cfg)
	d.bw.init()
	d.started = false
	d.finishing = false
	d.lastFlush = NoFlush
	d.err = nil
	d.matchLength = minMatchLength - 1
	d.prevLength = minMatchLength - 1
	d.prevMatch = 0
	d.matchAvailable = false
	d.pendingOut = 0
	d.totalIn, d.totalOut = 0, 0
}

// SetDictionary primes the history with dict. It must be called before the
// first Step. Only the last 32 KiB minus 262 bytes of dict can be used.
func (d *Deflater) SetDictionary(dict []byte) error {
	if d.err != nil {
		return d.err
	}
	if d.started {
		return ErrDictionary
	}
	if len(dict) < minMatchLength {
		return nil
	}
	if len(dict) > maxDist {
		dict = dict[len(dict)-maxDist:]
	}
	n := copy(d.window, dict)
	d.strstart = n
	d.blockStart = n
	d.insH = uint32(d.window[0])
	d.updateHash(d.window[1])
	for pos := 0; pos <= n-minMatchLength; pos++ {
		d.insert(pos)
	}
	return nil
}

// TotalIn is the number of uncompressed bytes consumed so far.
func (d *Deflater) TotalIn() int64 { return d.totalIn }

// TotalOut is the number of compressed bytes produced so far.
func (d *Deflater) TotalOut() int64 { return d.totalOut }

// Step compresses src into dst. It returns the bytes written to dst and
// consumed from src.
//
// With NoFlush the Deflater may hold data back. The other modes make it
// write out everything received so far; call Step again with the same mode
// and no new input until it returns with dst not full. After Finish only
// further Finish calls without input are allowed, until StatusStreamEnd.
func (d *Deflater) Step(dst, src []byte, flush Flush) (nDst, nSrc int, status Status, err error) {
	if d.err != nil {
		return 0, 0, StatusStreamError, d.err
	}
	if flush < NoFlush || flush > Finish {
		return 0, 0, StatusStreamError, d.misuse("invalid flush mode %d", flush)
	}
	if d.finishing && flush != Finish {
		return 0, 0, StatusStreamError, d.misuse("flush mode %d after finish", flush)
	}
	if d.finishing && len(src) != 0 {
		return 0, 0, StatusStreamError, d.misuse("input after finish")
	}
	if len(dst) == 0 {
		return 0, 0, StatusNeedOutput, nil
	}

	d.started = true
	d.src, d.srcPos = src, 0
	d.dst, d.dstPos = dst, 0
	status = d.deflate(flush)
	nDst, nSrc = d.dstPos, d.srcPos
	d.src, d.dst = nil, nil
	d.totalIn += int64(nSrc)
	d.totalOut += int64(nDst)

	if status == StatusOK && nDst == 0 && nSrc == 0 {
		if d.pending() > 0 {
			status = StatusNeedOutput
		} else {
			status = StatusNeedInput
		}
	}
	return nDst, nSrc, status, nil
}

func (d *Deflater) misuse(format string, args ...interface{}) error {
	d.err = errors.Wrapf(ErrStream, format, args...)
	return d.err
}

func (d *Deflater) pending() int {
	return len(d.bw.out) - d.pendingOut
}

// flushPending copies as much pending output as fits into dst.
func (d *Deflater) flushPending() {
	d.bw.flushBits()
	n := copy(d.dst[d.dstPos:], d.bw.out[d.pendingOut:])
	d.dstPos += n
	d.pendingOut += n
	if d.pendingOut == len(d.bw.out) {
		d.bw.out = d.bw.out[:0]
		d.pendingOut = 0
	}
}

func (d *Deflater) outFull() bool {
	return d.dstPos == len(d.dst)
}

func (d *Deflater) deflate(flush Flush) Status {
	oldFlush := d.lastFlush
	d.lastFlush = flush

	if d.pending() > 0 || d.bw.nbits >= 8 {
		d.flushPending()
		if d.outFull() {
			// Make sure a repeated flush call is not taken as a no-op.
			d.lastFlush = -1
			return StatusOK
		}
	} else if len(d.src) == 0 && flush <= oldFlush && flush != Finish {
		d.lastFlush = oldFlush
		return StatusNeedInput
	}

	if len(d.src) != 0 || d.lookahead != 0 || (flush != NoFlush && !d.finishing) {
		var bstate blockState
		switch d.cfg.strategy {
		case storedStrategy:
			bstate = d.deflateStored(flush)
		case fastStrategy:
			bstate = d.deflateFast(flush)
		default:
			bstate = d.deflateSlow(flush)
		}

		if bstate == finishStarted || bstate == finishDone {
			d.finishing = true
		}
		if bstate == needMore || bstate == finishStarted {
			if d.outFull() {
				d.lastFlush = -1
			}
			return StatusOK
		}
		if bstate == blockDone {
			if flush == PartialFlush {
				d.bw.align()
			} else {
				d.bw.writeStored(nil, false)
				if flush == FullFlush {
					d.clearHash()
				}
			}
			d.flushPending()
			if d.outFull() {
				d.lastFlush = -1
				return StatusOK
			}
		}
	}

	if flush != Finish {
		return StatusOK
	}
	if d.pending() > 0 {
		return StatusOK
	}
	return StatusStreamEnd
}

// fill tops up the lookahead from the Step input.
func (d *Deflater) fill() {
	d.srcPos += d.fillWindow(d.src[d.srcPos:])
}

// flushBlock closes the current block and copies pending output to dst.
func (d *Deflater) flushBlock(last bool) {
	var buf []byte
	if d.blockStart >= 0 {
		buf = d.window[d.blockStart:d.strstart]
	}
	d.bw.flushBlock(buf, d.level, last)
	d.blockStart = d.strstart
	d.flushPending()
}

// tallyLit and tallyMatch record a token and report whether the block
// should be closed.
func (d *Deflater) tallyLit(c byte) bool {
	if d.bw.tallyLit(c) {
		return true
	}
	return d.level > 2 && d.bw.worthClosing(d.strstart-d.blockStart)
}

func (d *Deflater) tallyMatch(dist, length int) bool {
	if d.bw.tallyMatch(dist, length-minMatchLength) {
		return true
	}
	return d.level > 2 && d.bw.worthClosing(d.strstart-d.blockStart)
}

func (d *Deflater) finish(flush Flush) blockState {
	last := flush == Finish
	d.flushBlock(last)
	if d.outFull() {
		if last {
			return finishStarted
		}
		return needMore
	}
	if last {
		return finishDone
	}
	return blockDone
}

// deflateStored copies input to stored blocks of up to 64 KiB, also closing
// a block before its start would slide out of the window.
func (d *Deflater) deflateStored(flush Flush) blockState {
	const maxBlockSize = 0xffff
	for {
		if d.lookahead <= 1 {
			d.fill()
			if d.lookahead == 0 {
				if flush == NoFlush {
					return needMore
				}
				break
			}
		}
		d.strstart += d.lookahead
		d.lookahead = 0

		maxStart := d.blockStart + maxBlockSize
		if d.strstart >= maxStart {
			d.lookahead = d.strstart - maxStart
			d.strstart = maxStart
			d.flushBlock(false)
			if d.outFull() {
				return needMore
			}
		}
		if d.strstart-d.blockStart >= maxDist {
			d.flushBlock(false)
			if d.outFull() {
				return needMore
			}
		}
	}
	return d.finish(flush)
}

// deflateFast takes the first match found at each position and only
// indexes the strings inside short matches.
func (d *Deflater) deflateFast(flush Flush) blockState {
	for {
		if d.lookahead < minLookahead {
			d.fill()
			if d.lookahead < minLookahead && flush == NoFlush {
				return needMore
			}
			if d.lookahead == 0 {
				break
			}
		}

		hashHead := 0
		if d.lookahead >= minMatchLength {
			hashHead = d.insert(d.strstart)
		}
		if hashHead != 0 && d.strstart-hashHead <= maxDist && d.strategy != HuffmanOnly {
			d.matchLength = d.longestMatch(hashHead, minMatchLength-1)
		}

		var bflush bool
		if d.matchLength >= minMatchLength {
			bflush = d.tallyMatch(d.strstart-d.matchStart, d.matchLength)
			d.lookahead -= d.matchLength
			if d.matchLength <= d.cfg.lazy && d.lookahead >= minMatchLength {
				d.matchLength--
				for d.matchLength > 0 {
					d.strstart++
					d.insert(d.strstart)
					d.matchLength--
				}
				d.strstart++
			} else {
				d.strstart += d.matchLength
				d.matchLength = 0
				d.rehash()
			}
		} else {
			bflush = d.tallyLit(d.window[d.strstart])
			d.lookahead--
			d.strstart++
		}
		if bflush {
			d.flushBlock(false)
			if d.outFull() {
				return needMore
			}
		}
	}
	return d.finish(flush)
}

// deflateSlow keeps a match pending for one position and drops it in favor
// of a longer match starting at the next byte.
func (d *Deflater) deflateSlow(flush Flush) blockState {
	for {
		if d.lookahead < minLookahead {
			d.fill()
			if d.lookahead < minLookahead && flush == NoFlush {
				return needMore
			}
			if d.lookahead == 0 {
				break
			}
		}

		hashHead := 0
		if d.lookahead >= minMatchLength {
			hashHead = d.insert(d.strstart)
		}

		d.prevLength = d.matchLength
		d.prevMatch = d.matchStart
		d.matchLength = minMatchLength - 1

		if hashHead != 0 && d.prevLength < d.cfg.lazy && d.strstart-hashHead <= maxDist && d.strategy != HuffmanOnly {
			d.matchLength = d.longestMatch(hashHead, d.prevLength)
			if d.matchLength <= 5 && (d.strategy == Filtered ||
				(d.matchLength == minMatchLength && d.strstart-d.matchStart > tooFar)) {
				d.matchLength = minMatchLength - 1
			}
		}

		switch {
		case d.prevLength >= minMatchLength && d.matchLength <= d.prevLength:
			// The previous match is at least as good: emit it.
			maxInsert := d.strstart + d.lookahead - minMatchLength
			bflush := d.tallyMatch(d.strstart-1-d.prevMatch, d.prevLength)
			d.lookahead -= d.prevLength - 1
			for d.prevLength -= 2; d.prevLength > 0; d.prevLength-- {
				d.strstart++
				if d.strstart <= maxInsert {
					d.insert(d.strstart)
				}
			}
			d.matchAvailable = false
			d.matchLength = minMatchLength - 1
			d.strstart++
			if bflush {
				d.flushBlock(false)
				if d.outFull() {
					return needMore
				}
			}

		case d.matchAvailable:
			// The previous byte has no better match than the one found
			// here: emit it as a literal.
			if d.tallyLit(d.window[d.strstart-1]) {
				d.flushBlock(false)
			}
			d.strstart++
			d.lookahead--
			if d.outFull() {
				return needMore
			}

		default:
			d.matchAvailable = true
			d.strstart++
			d.lookahead--
		}
	}

	if d.matchAvailable {
		d.tallyLit(d.window[d.strstart-1])
		d.matchAvailable = false
	}
	return d.finish(flush)
}
