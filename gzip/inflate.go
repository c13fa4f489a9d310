package gzip

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/deflatekit/pack/flate"
)

// Reasons reported in *flate.DataError for damage to the gzip wrapper.
const (
	ReasonMagic     = "incorrect header check"
	ReasonMethod    = "unknown compression method"
	ReasonFlags     = "unknown header flags set"
	ReasonHeaderCRC = "header crc mismatch"
	ReasonChecksum  = "incorrect data check"
	ReasonLength    = "incorrect length check"
)

// MaxStringLen bounds the bytes of Name and Comment kept from a header.
// Longer strings are truncated; the rest is still read and checked.
const MaxStringLen = 1 << 12

type inflateState uint8

const (
	stateFixed inflateState = iota
	stateExtraLen
	stateExtra
	stateName
	stateComment
	stateHdrCrc
	stateBody
	stateTrailer
	stateDone
)

// An Inflater decodes one gzip member one Step at a time. It parses the
// header, then checks the CRC-32 and length in the trailer.
type Inflater struct {
	f *flate.Inflater

	state     inflateState
	buf       [10]byte
	nbuf      int
	flags     byte
	xlen      int
	field     []byte
	hcrc      uint32
	hdr       Header
	bodyStart int64
	crc       uint32
	size      uint32
	err       error

	totalIn, totalOut int64
}

// NewInflater returns an Inflater with a 32 KiB window.
func NewInflater() *Inflater {
	f, _ := flate.NewInflater(15)
	z := &Inflater{f: f}
	z.Reset()
	return z
}

// Reset prepares z for a new member.
func (z *Inflater) Reset() {
	z.f.Reset()
	z.state = stateFixed
	z.nbuf = 0
	z.flags = 0
	z.xlen = 0
	z.field = z.field[:0]
	z.hcrc = 0
	z.hdr = Header{}
	z.bodyStart = 0
	z.crc, z.size = 0, 0
	z.err = nil
	z.totalIn, z.totalOut = 0, 0
}

// Header returns the member header. ok is false until all of it has been
// read.
func (z *Inflater) Header() (h Header, ok bool) {
	return z.hdr, z.state >= stateBody
}

// TotalIn is the number of gzip bytes consumed so far.
func (z *Inflater) TotalIn() int64 { return z.totalIn }

// TotalOut is the number of decompressed bytes produced so far.
func (z *Inflater) TotalOut() int64 { return z.totalOut }

// Step decodes from src into dst, with the same contract as
// (*flate.Inflater).Step. Once StatusStreamEnd is returned, src[nSrc:] holds
// whatever followed the member.
func (z *Inflater) Step(dst, src []byte) (nDst, nSrc int, status flate.Status, err error) {
	if z.err != nil {
		return 0, 0, statusOf(z.err), z.err
	}
	defer func() {
		z.totalIn += int64(nSrc)
		z.totalOut += int64(nDst)
	}()

	needInput := func() (int, int, flate.Status, error) {
		return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedInput), nil
	}

	for {
		switch z.state {
		case stateFixed:
			if !z.fill(src, &nSrc, 10) {
				return needInput()
			}
			if err := z.checkFixed(nSrc); err != nil {
				return nDst, nSrc, flate.StatusDataError, err
			}

		case stateExtraLen:
			if !z.fill(src, &nSrc, 2) {
				return needInput()
			}
			z.xlen = int(binary.LittleEndian.Uint16(z.buf[:]))
			z.nbuf = 0
			z.field = z.field[:0]
			z.state = stateExtra

		case stateExtra:
			n := min(z.xlen-len(z.field), len(src)-nSrc)
			z.field = append(z.field, src[nSrc:nSrc+n]...)
			z.hcrc = crc32.Update(z.hcrc, crc32.IEEETable, src[nSrc:nSrc+n])
			nSrc += n
			if len(z.field) < z.xlen {
				return needInput()
			}
			z.hdr.Extra = append([]byte{}, z.field...)
			z.field = z.field[:0]
			z.nextField()

		case stateName, stateComment:
			rest := src[nSrc:]
			i := bytes.IndexByte(rest, 0)
			if i < 0 {
				z.keep(rest)
				z.hcrc = crc32.Update(z.hcrc, crc32.IEEETable, rest)
				nSrc = len(src)
				return needInput()
			}
			z.keep(rest[:i])
			z.hcrc = crc32.Update(z.hcrc, crc32.IEEETable, rest[:i+1])
			nSrc += i + 1
			if z.state == stateName {
				z.hdr.Name = latin1(z.field)
			} else {
				z.hdr.Comment = latin1(z.field)
			}
			z.field = z.field[:0]
			z.nextField()

		case stateHdrCrc:
			if !z.fill(src, &nSrc, 2) {
				return needInput()
			}
			z.nbuf = 0
			if binary.LittleEndian.Uint16(z.buf[:]) != uint16(z.hcrc) {
				return nDst, nSrc, flate.StatusDataError, z.fail(ReasonHeaderCRC, nSrc)
			}
			z.state = stateBody

		case stateBody:
			if z.bodyStart == 0 {
				z.bodyStart = z.totalIn + int64(nSrc)
			}
			n, m, st, err := z.f.Step(dst[nDst:], src[nSrc:])
			z.crc = crc32.Update(z.crc, crc32.IEEETable, dst[nDst:nDst+n])
			z.size += uint32(n)
			nDst += n
			nSrc += m
			if err != nil {
				z.err = z.rebase(err)
				return nDst, nSrc, st, z.err
			}
			if st != flate.StatusStreamEnd {
				return nDst, nSrc, progress(nDst, nSrc, st), nil
			}
			z.state = stateTrailer

		case stateTrailer:
			if !z.fill(src, &nSrc, 8) {
				return needInput()
			}
			z.nbuf = 0
			if binary.LittleEndian.Uint32(z.buf[:4]) != z.crc {
				return nDst, nSrc, flate.StatusDataError, z.fail(ReasonChecksum, nSrc)
			}
			if binary.LittleEndian.Uint32(z.buf[4:8]) != z.size {
				return nDst, nSrc, flate.StatusDataError, z.fail(ReasonLength, nSrc)
			}
			z.state = stateDone

		case stateDone:
			return nDst, nSrc, flate.StatusStreamEnd, nil
		}
	}
}

// fill moves bytes from src into z.buf until it holds n of them. Header
// bytes also go into the header CRC.
func (z *Inflater) fill(src []byte, nSrc *int, n int) bool {
	k := copy(z.buf[z.nbuf:n], src[*nSrc:])
	if z.state < stateHdrCrc {
		z.hcrc = crc32.Update(z.hcrc, crc32.IEEETable, src[*nSrc:*nSrc+k])
	}
	z.nbuf += k
	*nSrc += k
	return z.nbuf == n
}

func (z *Inflater) checkFixed(nSrc int) error {
	b := z.buf[:10]
	z.nbuf = 0
	switch {
	case b[0] != id1 || b[1] != id2:
		return z.fail(ReasonMagic, nSrc)
	case b[2] != methodDeflate:
		return z.fail(ReasonMethod, nSrc)
	case b[3]&^flagsKnown != 0:
		return z.fail(ReasonFlags, nSrc)
	}
	z.flags = b[3]
	z.hdr.Text = z.flags&flagText != 0
	z.hdr.HdrCrc = z.flags&flagHdrCrc != 0
	if mtime := binary.LittleEndian.Uint32(b[4:8]); mtime > 0 {
		z.hdr.ModTime = time.Unix(int64(mtime), 0)
	}
	z.hdr.OS = b[9]
	z.state = stateFixed
	z.nextField()
	return nil
}

// nextField moves to the first optional header part after the current one
// whose flag is set.
func (z *Inflater) nextField() {
	for {
		z.state++
		switch z.state {
		case stateExtraLen:
			if z.flags&flagExtra != 0 {
				return
			}
		case stateExtra:
		case stateName:
			if z.flags&flagName != 0 {
				return
			}
		case stateComment:
			if z.flags&flagComment != 0 {
				return
			}
		case stateHdrCrc:
			if z.flags&flagHdrCrc != 0 {
				return
			}
		default:
			return
		}
	}
}

func (z *Inflater) fail(reason string, nSrc int) error {
	z.err = &flate.DataError{Offset: z.totalIn + int64(nSrc), Reason: reason}
	return z.err
}

// rebase turns offsets within the DEFLATE data into offsets within the
// gzip member.
func (z *Inflater) rebase(err error) error {
	if de, ok := err.(*flate.DataError); ok {
		return &flate.DataError{Offset: de.Offset + z.bodyStart, Reason: de.Reason}
	}
	return err
}

func progress(nDst, nSrc int, blocked flate.Status) flate.Status {
	if blocked == flate.StatusOK || nDst > 0 || nSrc > 0 {
		return flate.StatusOK
	}
	return blocked
}

func statusOf(err error) flate.Status {
	if _, ok := err.(*flate.DataError); ok {
		return flate.StatusDataError
	}
	return flate.StatusStreamError
}

// keep appends b to the string field being read, up to MaxStringLen bytes.
func (z *Inflater) keep(b []byte) {
	if n := MaxStringLen - len(z.field); n < len(b) {
		b = b[:n]
	}
	z.field = append(z.field, b...)
}
