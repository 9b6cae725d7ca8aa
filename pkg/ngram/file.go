package ngram

import (
	"bufio"
	"io"

	"github.com/tommoulard/keyboardgen/pkg/keycode"
)

// FromReader accumulates ngram counts line by line from r, matching the
// original dataset loader's per-line accumulation strategy so that a single
// oversized file does not need to be held in memory at once.
func FromReader(r io.Reader, n int, opts keycode.Options) (*Holder, error) {
	h := NewHolder(n)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineHolder, err := FromText(scanner.Text(), n, opts)
		if err != nil {
			return nil, err
		}

		if err := h.Combine(lineHolder); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return h, nil
}
