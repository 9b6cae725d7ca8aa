// Package ngram implements the ngram frequency holder (C2): fixed-length
// windows of keycodes tallied from a text corpus.
package ngram

import (
	"fmt"
	"strings"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
)

// Ngram is an ordered, fixed-length list of keycodes.
type Ngram struct {
	keys []keycode.Keycode
}

// New builds an Ngram from the given keycodes.
func New(keys ...keycode.Keycode) Ngram {
	cp := make([]keycode.Keycode, len(keys))
	copy(cp, keys)

	return Ngram{keys: cp}
}

// Len returns the ngram's fixed length n.
func (g Ngram) Len() int { return len(g.keys) }

// Keys returns the ngram's keycodes in order.
func (g Ngram) Keys() []keycode.Keycode { return g.keys }

// key renders g as a comparable string so it can be used as a map key even
// though keycode.Keycode contains non-comparable-looking fields (it is
// actually comparable, but a string key keeps the holder's internals
// independent of that detail).
func (g Ngram) key() string {
	var b strings.Builder
	for i, k := range g.keys {
		if i > 0 {
			b.WriteByte(0)
		}

		fmt.Fprintf(&b, "%d:%s:%d:%d", k.Kind, k.Name, k.Target, k.Source)
	}

	return b.String()
}

func (g Ngram) String() string {
	parts := make([]string, len(g.keys))
	for i, k := range g.keys {
		parts[i] = k.String()
	}

	return strings.Join(parts, "")
}

// CountedNgram pairs an ngram with its frequency count.
type CountedNgram struct {
	Ngram Ngram
	Count uint64
}

// Holder tallies fixed-length keycode windows. All ngrams it holds share
// the same length N.
type Holder struct {
	n      int
	counts map[string]uint64
	byKey  map[string]Ngram
	total  uint64
}

// NewHolder creates an empty holder for ngrams of length n.
func NewHolder(n int) *Holder {
	return &Holder{
		n:      n,
		counts: make(map[string]uint64),
		byKey:  make(map[string]Ngram),
	}
}

// N returns the fixed ngram length this holder accumulates.
func (h *Holder) N() int { return h.n }

// Total returns the sum of all retained counts.
func (h *Holder) Total() uint64 { return h.total }

// Len returns the number of distinct ngrams retained.
func (h *Holder) Len() int { return len(h.counts) }

// Count returns the count recorded for g, or 0 if absent.
func (h *Holder) Count(g Ngram) uint64 { return h.counts[g.key()] }

// Range calls fn for every (ngram, count) pair. Iteration order is not
// specified.
func (h *Holder) Range(fn func(g Ngram, count uint64)) {
	for k, c := range h.counts {
		fn(h.byKey[k], c)
	}
}

// Add records count additional occurrences of g, failing with
// LengthMismatchError if g's length disagrees with the holder's n.
func (h *Holder) Add(g Ngram, count uint64) error {
	if g.Len() != h.n {
		return &alcerr.LengthMismatchError{Expected: h.n, Got: g.Len()}
	}

	k := g.key()
	if _, exists := h.counts[k]; !exists {
		h.byKey[k] = g
	}

	h.counts[k] += count
	h.total += count

	return nil
}

// Combine additively merges other into h, failing with LengthMismatchError
// if the two holders' n differ.
func (h *Holder) Combine(other *Holder) error {
	if h.n != other.n {
		return &alcerr.LengthMismatchError{Expected: h.n, Got: other.n}
	}

	var firstErr error

	other.Range(func(g Ngram, count uint64) {
		if firstErr == nil {
			firstErr = h.Add(g, count)
		}
	})

	return firstErr
}

// FromText decodes s into keycodes (per opts) and slides a window of size n
// across it, counting each ngram. If the decoded text is shorter than n, an
// empty holder is returned (no error: "none" in the spec's terms, modelled
// here as simply zero ngrams).
func FromText(s string, n int, opts keycode.Options) (*Holder, error) {
	h := NewHolder(n)

	keys, _ := keycode.DecodeString(s, opts)
	if len(keys) < n {
		return h, nil
	}

	for i := 0; i+n <= len(keys); i++ {
		g := New(keys[i : i+n]...)
		if err := h.Add(g, 1); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// TopPolicy selects how many ngrams take_top retains.
type TopPolicy struct {
	// All, when true, retains every ngram (take_top is a no-op).
	All bool
	// K is the number retained when All is false.
	K int
}

// AllNgrams is the TopPolicy that retains everything.
func AllNgrams() TopPolicy { return TopPolicy{All: true} }

// TopK is the TopPolicy that retains the k most frequent ngrams.
func TopK(k int) TopPolicy { return TopPolicy{K: k} }

// TakeTop keeps only the k most frequent ngrams (ties broken arbitrarily),
// recomputing Total from the retained entries only. A TopPolicy with
// All=true is a no-op.
func (h *Holder) TakeTop(policy TopPolicy) {
	if policy.All || policy.K >= len(h.counts) {
		return
	}

	type entry struct {
		key   string
		count uint64
	}

	entries := make([]entry, 0, len(h.counts))
	for k, c := range h.counts {
		entries = append(entries, entry{k, c})
	}

	// Partial selection sort for the top K; counts map is small enough in
	// practice (bounded by alphabet size ^ n) that this need not be a heap.
	for i := 0; i < policy.K && i < len(entries); i++ {
		maxIdx := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].count > entries[maxIdx].count {
				maxIdx = j
			}
		}

		entries[i], entries[maxIdx] = entries[maxIdx], entries[i]
	}

	kept := entries[:min(policy.K, len(entries))]

	newCounts := make(map[string]uint64, len(kept))
	newByKey := make(map[string]Ngram, len(kept))

	var total uint64

	for _, e := range kept {
		newCounts[e.key] = e.count
		newByKey[e.key] = h.byKey[e.key]
		total += e.count
	}

	h.counts = newCounts
	h.byKey = newByKey
	h.total = total
}

func min(a, b int) int {
	if a < b {
		return a
	}

	return b
}
