// Package zlib implements the zlib container format (RFC 1950) around the
// raw DEFLATE engines of package flate.
package zlib

import (
	"encoding/binary"
	"hash"
	"hash/adler32"

	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
)

const (
	methodDeflate = 8
	maxWindowBits = 15
	flagDict      = 0x20
)

// Reasons reported in *flate.DataError for damage to the zlib wrapper.
const (
	ReasonHeader     = "incorrect header check"
	ReasonMethod     = "unknown compression method"
	ReasonWindow     = "invalid window size"
	ReasonDictionary = "incorrect dictionary"
	ReasonChecksum   = "incorrect data check"
)

type inflateState uint8

const (
	stateHeader inflateState = iota
	stateDictID
	stateNeedDict
	stateBody
	stateTrailer
	stateDone
)

// An Inflater decodes a zlib stream one Step at a time, checking the header
// and the Adler-32 trailer around the DEFLATE data.
type Inflater struct {
	f          *flate.Inflater
	windowBits int
	dict       []byte

	state     inflateState
	buf       [4]byte
	nbuf      int
	dictID    uint32
	wantDict  bool
	bodyStart int64
	digest    hash.Hash32
	err       error

	totalIn, totalOut int64
}

// NewInflater returns an Inflater that accepts streams whose window is at
// most 1<<windowBits bytes.
func NewInflater(windowBits int) (*Inflater, error) {
	f, err := flate.NewInflater(windowBits)
	if err != nil {
		return nil, err
	}
	z := &Inflater{f: f, windowBits: windowBits, digest: adler32.New()}
	z.Reset()
	return z, nil
}

// NewInflaterDict returns an Inflater that answers a request for a preset
// dictionary with dict instead of stopping with StatusNeedDict.
func NewInflaterDict(dict []byte) *Inflater {
	z, _ := NewInflater(maxWindowBits)
	z.dict = dict
	return z
}

// Reset prepares z for a new stream. A dictionary given to NewInflaterDict
// is kept.
func (z *Inflater) Reset() {
	z.f.Reset()
	z.state = stateHeader
	z.nbuf = 0
	z.dictID = 0
	z.wantDict = false
	z.bodyStart = 0
	z.digest.Reset()
	z.err = nil
	z.totalIn, z.totalOut = 0, 0
}

// DictID returns the Adler-32 of the preset dictionary the stream asks for,
// once its header has been read.
func (z *Inflater) DictID() (id uint32, ok bool) {
	return z.dictID, z.wantDict
}

// SetDictionary supplies the preset dictionary after Step has returned
// StatusNeedDict. A dictionary whose checksum does not match is refused with
// a *flate.DataError, and z keeps waiting for the right one.
func (z *Inflater) SetDictionary(dict []byte) error {
	if z.err != nil {
		return z.err
	}
	if z.state != stateNeedDict {
		return errors.Wrap(flate.ErrDictionary, "zlib: stream has not asked for a dictionary")
	}
	if adler32.Checksum(dict) != z.dictID {
		return &flate.DataError{Offset: z.totalIn, Reason: ReasonDictionary}
	}
	if err := z.f.SetDictionary(dict); err != nil {
		return err
	}
	z.state = stateBody
	z.bodyStart = z.totalIn
	return nil
}

// TotalIn is the number of zlib bytes consumed so far.
func (z *Inflater) TotalIn() int64 { return z.totalIn }

// TotalOut is the number of decompressed bytes produced so far.
func (z *Inflater) TotalOut() int64 { return z.totalOut }

// Step decodes from src into dst, with the same contract as
// (*flate.Inflater).Step. When the header carries FDICT, Step stops with
// StatusNeedDict until SetDictionary succeeds.
func (z *Inflater) Step(dst, src []byte) (nDst, nSrc int, status flate.Status, err error) {
	if z.err != nil {
		return 0, 0, statusOf(z.err), z.err
	}
	defer func() {
		z.totalIn += int64(nSrc)
		z.totalOut += int64(nDst)
	}()

	for {
		switch z.state {
		case stateHeader:
			if !z.fill(src, &nSrc, 2) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedInput), nil
			}
			if err := z.checkHeader(nSrc); err != nil {
				return nDst, nSrc, flate.StatusDataError, err
			}

		case stateDictID:
			if !z.fill(src, &nSrc, 4) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedInput), nil
			}
			z.dictID = binary.BigEndian.Uint32(z.buf[:])
			z.wantDict = true
			z.nbuf = 0
			z.state = stateNeedDict

		case stateNeedDict:
			if z.dict == nil {
				return nDst, nSrc, flate.StatusNeedDict, nil
			}
			z.totalIn += int64(nSrc)
			err := z.SetDictionary(z.dict)
			z.totalIn -= int64(nSrc)
			if err != nil {
				z.err = err
				return nDst, nSrc, statusOf(err), err
			}

		case stateBody:
			if z.bodyStart == 0 {
				z.bodyStart = z.totalIn + int64(nSrc)
			}
			n, m, st, err := z.f.Step(dst[nDst:], src[nSrc:])
			z.digest.Write(dst[nDst : nDst+n])
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
			if !z.fill(src, &nSrc, 4) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedInput), nil
			}
			if binary.BigEndian.Uint32(z.buf[:]) != z.digest.Sum32() {
				return nDst, nSrc, flate.StatusDataError, z.fail(ReasonChecksum, nSrc)
			}
			z.state = stateDone

		case stateDone:
			return nDst, nSrc, flate.StatusStreamEnd, nil
		}
	}
}

// fill moves bytes from src into z.buf until it holds n of them.
func (z *Inflater) fill(src []byte, nSrc *int, n int) bool {
	for z.nbuf < n && *nSrc < len(src) {
		z.buf[z.nbuf] = src[*nSrc]
		z.nbuf++
		*nSrc++
	}
	return z.nbuf == n
}

func (z *Inflater) checkHeader(nSrc int) error {
	cmf, flg := z.buf[0], z.buf[1]
	z.nbuf = 0
	switch {
	case (uint(cmf)<<8|uint(flg))%31 != 0:
		return z.fail(ReasonHeader, nSrc)
	case cmf&0x0f != methodDeflate:
		return z.fail(ReasonMethod, nSrc)
	case int(cmf>>4)+8 > z.windowBits:
		return z.fail(ReasonWindow, nSrc)
	}
	if flg&flagDict != 0 {
		z.state = stateDictID
	} else {
		z.state = stateBody
	}
	return nil
}

func (z *Inflater) fail(reason string, nSrc int) error {
	z.err = &flate.DataError{Offset: z.totalIn + int64(nSrc), Reason: reason}
	return z.err
}

// rebase turns offsets within the DEFLATE data into offsets within the
// zlib stream.
func (z *Inflater) rebase(err error) error {
	if de, ok := err.(*flate.DataError); ok {
		return &flate.DataError{Offset: de.Offset + z.bodyStart, Reason: de.Reason}
	}
	return err
}

// progress reports StatusOK when anything moved, and the blocking status
// otherwise.
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
