package flate

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status describes why a call to Step returned.
type Status int

const (
	// StatusOK means progress was made; call Step again with more input or
	// more output space as appropriate.
	StatusOK Status = iota
	// StatusNeedInput means no progress is possible until more input is
	// supplied. It is not an error.
	StatusNeedInput
	// StatusNeedOutput means no progress is possible until the caller
	// provides output space. It is not an error.
	StatusNeedOutput
	// StatusStreamEnd means the stream is complete and all output has been
	// delivered.
	StatusStreamEnd
	// StatusNeedDict means decoding is suspended until a preset dictionary
	// is supplied with SetDictionary.
	StatusNeedDict
	// StatusDataError means the input is corrupt. The engine stays in this
	// state.
	StatusDataError
	// StatusStreamError means the engine was used incorrectly. The engine
	// stays in this state.
	StatusStreamError
)

var statusNames = [...]string{
	StatusOK:          "ok",
	StatusNeedInput:   "need input",
	StatusNeedOutput:  "need output",
	StatusStreamEnd:   "stream end",
	StatusNeedDict:    "need dictionary",
	StatusDataError:   "data error",
	StatusStreamError: "stream error",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Flush controls how much buffered data the Deflater emits during a Step.
type Flush int

const (
	// NoFlush lets the Deflater decide when to close blocks.
	NoFlush Flush = iota
	// PartialFlush emits all pending data followed by an empty static block.
	PartialFlush
	// SyncFlush emits all pending data followed by an empty stored block,
	// leaving the output byte aligned.
	SyncFlush
	// FullFlush is like SyncFlush, and also forgets the match history so
	// that decoding can restart at this point.
	FullFlush
	// Finish terminates the stream.
	Finish
)

// Strategy tunes the match search of the Deflater.
type Strategy int

const (
	DefaultStrategy Strategy = iota
	// Filtered drops short matches, for data that is mostly small random
	// values with some structure.
	Filtered
	// HuffmanOnly never searches for matches.
	HuffmanOnly
)

const (
	NoCompression      = 0
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = -1
)

var (
	// ErrStream is returned (wrapped) when an engine is used in a way its
	// contract does not allow.
	ErrStream = errors.New("flate: stream error")

	// ErrDictionary is returned by SetDictionary when a dictionary cannot be
	// applied at this point of the stream.
	ErrDictionary = errors.New("flate: dictionary not allowed now")

	// ErrNeedDict is returned by readers when the stream asks for a preset
	// dictionary that was not supplied.
	ErrNeedDict = errors.New("flate: preset dictionary required")
)

// A DataError reports corrupt compressed data.
type DataError struct {
	Offset int64  // input offset at which the problem was detected
	Reason string // short description
}

func (e *DataError) Error() string {
	return fmt.Sprintf("flate: corrupt input before offset %d: %s", e.Offset, e.Reason)
}
