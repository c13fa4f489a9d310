package gzip

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
)

type deflateState uint8

const (
	sendHeader deflateState = iota
	sendBody
	sendTrailer
	sendDone
)

// A Deflater writes one gzip member one Step at a time.
type Deflater struct {
	// Header is written at the start of the member. It may be changed
	// until the first Step.
	Header Header

	f     *flate.Deflater
	level int

	state deflateState
	out   []byte
	sent  int
	crc   uint32
	size  uint32
	err   error

	totalIn, totalOut int64
}

// NewDeflater returns a Deflater for the given level and strategy, as for
// flate.NewDeflater.
func NewDeflater(level int, strategy flate.Strategy) (*Deflater, error) {
	f, err := flate.NewDeflater(level, strategy)
	if err != nil {
		return nil, err
	}
	z := &Deflater{f: f, level: level}
	z.Reset()
	return z, nil
}

// Reset discards all state so that z can write a new member. Header is
// kept.
func (z *Deflater) Reset() {
	z.f.Reset()
	z.state = sendHeader
	z.out = z.out[:0]
	z.sent = 0
	z.crc, z.size = 0, 0
	z.err = nil
	z.totalIn, z.totalOut = 0, 0
}

// TotalIn is the number of uncompressed bytes consumed so far.
func (z *Deflater) TotalIn() int64 { return z.totalIn }

// TotalOut is the number of gzip bytes produced so far.
func (z *Deflater) TotalOut() int64 { return z.totalOut }

// Step compresses src into dst, with the same contract as
// (*flate.Deflater).Step. A Header that cannot be encoded is reported as a
// wrapped flate.ErrStream.
func (z *Deflater) Step(dst, src []byte, flush flate.Flush) (nDst, nSrc int, status flate.Status, err error) {
	if z.err != nil {
		return 0, 0, flate.StatusStreamError, z.err
	}
	defer func() {
		z.totalIn += int64(nSrc)
		z.totalOut += int64(nDst)
	}()

	for {
		switch z.state {
		case sendHeader:
			if len(z.out) == 0 {
				out, err := z.Header.appendHeader(z.out, z.level)
				if err != nil {
					z.err = errors.Wrap(flate.ErrStream, err.Error())
					return 0, 0, flate.StatusStreamError, z.err
				}
				z.out = out
			}
			if !z.drain(dst, &nDst) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedOutput), nil
			}
			z.state = sendBody

		case sendBody:
			n, m, st, err := z.f.Step(dst[nDst:], src, flush)
			z.crc = crc32.Update(z.crc, crc32.IEEETable, src[:m])
			z.size += uint32(m)
			nDst += n
			nSrc += m
			if err != nil {
				z.err = err
				return nDst, nSrc, st, err
			}
			if st != flate.StatusStreamEnd {
				return nDst, nSrc, progress(nDst, nSrc, st), nil
			}
			z.out = binary.LittleEndian.AppendUint32(z.out[:0], z.crc)
			z.out = binary.LittleEndian.AppendUint32(z.out, z.size)
			z.sent = 0
			z.state = sendTrailer

		case sendTrailer:
			if !z.drain(dst, &nDst) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedOutput), nil
			}
			z.state = sendDone

		case sendDone:
			if flush != flate.Finish || len(src) != 0 {
				z.err = errors.Wrap(flate.ErrStream, "gzip: member already finished")
				return nDst, nSrc, flate.StatusStreamError, z.err
			}
			return nDst, nSrc, flate.StatusStreamEnd, nil
		}
	}
}

func (z *Deflater) drain(dst []byte, nDst *int) bool {
	n := copy(dst[*nDst:], z.out[z.sent:])
	z.sent += n
	*nDst += n
	return z.sent == len(z.out)
}
