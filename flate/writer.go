package flate

import (
	"io"

	"github.com/deflatekit/pack"
)

// NewBlockWriter returns a pack.Writer that compresses data at the given
// level with NewMatchFinder and NewEncoder. Levels 1-9 are available; levels
// outside this range are replaced with the closest level available.
func NewBlockWriter(w io.Writer, level int) *pack.Writer {
	return &pack.Writer{
		Dest:        w,
		MatchFinder: NewMatchFinder(level),
		Encoder:     NewEncoder(),
		BlockSize:   1 << 16,
	}
}

// NewMatchFinder returns a hash chain match finder with the search depth of
// the given level. Levels 1-3 parse greedily; higher levels defer matches
// the way the Deflater's lazy mode does.
func NewMatchFinder(level int) pack.MatchFinder {
	if level < 1 {
		level = 1
	}
	if level > 9 {
		level = 9
	}
	lvl := levels[level]

	var p pack.Parser
	if lvl.strategy == fastStrategy {
		p = &pack.GreedyParser{MinLength: 4}
	} else {
		p = &pack.LazyParser{MinLength: 4, GoodEnough: lvl.nice}
	}
	return &pack.HashChain{
		SearchLen:   lvl.chain,
		MaxDistance: windowSize,
		Parser:      p,
	}
}
