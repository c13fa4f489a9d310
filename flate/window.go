package flate

// window is the circular history buffer of the Inflater. Decoded bytes are
// written at write and handed to the caller from read; bytes behind read
// stay available as match history until they are overwritten.
//
// One slot is kept free when write has wrapped behind read, so write == read
// always means that nothing is pending.
type window struct {
	buf   []byte
	read  int
	write int
	have  int // history bytes available for matches, at most len(buf)
}

func newWindow(bits uint) window {
	return window{buf: make([]byte, 1<<bits)}
}

func (w *window) reset() {
	w.read, w.write, w.have = 0, 0, 0
}

// wrap moves write back to the start once the end is reached, unless the
// reader still sits at the start.
func (w *window) wrap() {
	if w.write == len(w.buf) && w.read != 0 {
		w.write = 0
	}
}

// space is the number of contiguous bytes writable at write.
func (w *window) space() int {
	if w.write < w.read {
		return w.read - w.write - 1
	}
	return len(w.buf) - w.write
}

// pending is the number of decoded bytes not yet handed out.
func (w *window) pending() int {
	if w.write < w.read {
		return len(w.buf) - w.read + w.write
	}
	return w.write - w.read
}

func (w *window) commit(n int) {
	w.write += n
	w.have += n
	if w.have > len(w.buf) {
		w.have = len(w.buf)
	}
}

func (w *window) putByte(b byte) {
	w.buf[w.write] = b
	w.commit(1)
}

// copyMatch appends n bytes found dist bytes back. The caller guarantees
// 1 <= dist <= have and n <= space().
func (w *window) copyMatch(dist, n int) {
	from := w.write - dist
	if from < 0 {
		from += len(w.buf)
	}
	to := w.write
	if from+n <= to {
		copy(w.buf[to:to+n], w.buf[from:from+n])
	} else {
		for i := 0; i < n; i++ {
			w.buf[to+i] = w.buf[from]
			from++
			if from == len(w.buf) {
				from = 0
			}
		}
	}
	w.commit(n)
}

// flush copies pending bytes into dst and returns how many were copied.
func (w *window) flush(dst []byte) int {
	n := 0
	if w.read > w.write {
		c := copy(dst, w.buf[w.read:])
		w.read += c
		n += c
		if w.read < len(w.buf) {
			return n
		}
		w.read = 0
	}
	c := copy(dst[n:], w.buf[w.read:w.write])
	w.read += c
	n += c
	if w.read == len(w.buf) && w.write == len(w.buf) {
		w.read, w.write = 0, 0
	}
	return n
}

// preset loads history that is never handed to the caller.
func (w *window) preset(dict []byte) {
	if len(dict) > len(w.buf) {
		dict = dict[len(dict)-len(w.buf):]
	}
	n := copy(w.buf, dict)
	w.read, w.write = n, n
	w.have = n
}
