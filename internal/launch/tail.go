package launch

import "sync"

// lineTail keeps the last max lines of child output. Bounded so a noisy
// child cannot grow memory without limit.
type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
	next  int
	full  bool
}

func newLineTail(max int) *lineTail {
	if max <= 0 {
		max = 1
	}
	return &lineTail{max: max, lines: make([]string, max)}
}

func (t *lineTail) Append(line string) {
	t.mu.Lock()
	t.lines[t.next] = line
	t.next = (t.next + 1) % t.max
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()
}

// Lines returns the buffered lines in arrival order.
func (t *lineTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		out := make([]string, t.next)
		copy(out, t.lines[:t.next])
		return out
	}
	out := make([]string, 0, t.max)
	out = append(out, t.lines[t.next:]...)
	out = append(out, t.lines[:t.next]...)
	return out
}

// lineWriter splits a byte stream into complete lines and forwards them.
// Partial lines are buffered until their newline arrives.
type lineWriter struct {
	mu     sync.Mutex
	buf    []byte
	onLine func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		idx := indexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(w.buf[:idx])
		if len(line) > 0 {
			w.onLine(line)
		}
		w.buf = w.buf[idx+1:]
	}
	return len(p), nil
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}
