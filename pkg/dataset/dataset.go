// Package dataset implements the frequency dataset loader (C3): it
// aggregates per-file ngram frequency holders across a directory, one per
// ngram length up to a configured maximum, and caches the result keyed by
// its loading configuration.
package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/ngram"
)

// Dataset holds one ngram.Holder per ngram length, from 1 up to MaxN.
type Dataset struct {
	MaxN int
	ByN  map[int]*ngram.Holder
}

// NewDataset creates an empty dataset for ngram lengths 1..maxN.
func NewDataset(maxN int) *Dataset {
	return &Dataset{MaxN: maxN, ByN: make(map[int]*ngram.Holder)}
}

// Holder returns the holder for ngram length n, or nil if absent.
func (d *Dataset) Holder(n int) *ngram.Holder { return d.ByN[n] }

// Ns returns the dataset's ngram lengths in ascending order.
func (d *Dataset) Ns() []int {
	ns := make([]int, 0, len(d.ByN))
	for n := range d.ByN {
		ns = append(ns, n)
	}

	sort.Ints(ns)

	return ns
}

// cacheRecord is the on-disk JSON shape a Dataset (de)serialises through.
// The keycode set is written by name so the cache survives across process
// runs without relying on Keycode's internal struct layout.
type cacheRecord struct {
	MaxN int                     `json:"max_n"`
	ByN  map[string][]ngramEntry `json:"by_n"`
}

type ngramEntry struct {
	Keys  []string `json:"keys"`
	Count uint64   `json:"count"`
}

func toCacheRecord(d *Dataset) cacheRecord {
	rec := cacheRecord{MaxN: d.MaxN, ByN: make(map[string][]ngramEntry)}

	for n, holder := range d.ByN {
		entries := make([]ngramEntry, 0, holder.Len())

		holder.Range(func(g ngram.Ngram, count uint64) {
			keys := g.Keys()
			tokens := make([]string, len(keys))
			for i, k := range keys {
				tokens[i] = k.String()
			}

			entries = append(entries, ngramEntry{Keys: tokens, Count: count})
		})

		rec.ByN[strconv.Itoa(n)] = entries
	}

	return rec
}

func fromCacheRecord(rec cacheRecord) (*Dataset, error) {
	d := NewDataset(rec.MaxN)

	for nStr, entries := range rec.ByN {
		n, err := strconv.Atoi(nStr)
		if err != nil {
			return nil, &alcerr.ParseError{Input: nStr, Reason: "cache ngram-length key is not an integer"}
		}

		holder := ngram.NewHolder(n)

		for _, e := range entries {
			keys := make([]keycode.Keycode, len(e.Keys))
			for i, tok := range e.Keys {
				keys[i] = keycode.ParseToken(tok)
			}

			if err := holder.Add(ngram.New(keys...), e.Count); err != nil {
				return nil, err
			}
		}

		d.ByN[n] = holder
	}

	return d, nil
}

// CacheFileName computes the deterministic, content-addressed-by-config
// cache file name from the dataset directory name, max ngram length, top
// policy, and decoder options: "<dir>_<max_n>_<top_policy>_<abcdef>_<inclusions>.json".
func CacheFileName(dir string, maxN int, policy ngram.TopPolicy, opts keycode.Options) string {
	base := filepath.Base(filepath.Clean(dir))

	topPolicy := "all"
	if !policy.All {
		topPolicy = strconv.Itoa(policy.K)
	}

	toggles := []bool{
		opts.IncludeAlphas,
		opts.IncludeNumbers,
		opts.IncludeNumberSymbols,
		opts.IncludeBrackets,
		opts.IncludeMiscSymbols,
		opts.IncludeMiscSymbolsShifted,
	}

	abcdef := make([]byte, len(toggles))

	for i, b := range toggles {
		if b {
			abcdef[i] = '1'
		} else {
			abcdef[i] = '0'
		}
	}

	names := make([]string, len(opts.ExplicitInclusions))
	for i, k := range opts.ExplicitInclusions {
		names[i] = k.String()
	}

	inclusions := strings.Join(names, "_")

	return fmt.Sprintf("%s_%d_%s_%s_%s.json", base, maxN, topPolicy, abcdef, inclusions)
}

// Load implements §4.3's load(dir, max_n, top_policy, opts): it reads an
// adjacent cache file if one exists, otherwise walks dir non-recursively
// (in sorted file-name order, for determinism) building one holder per
// ngram length from 1..max_n, applies policy, and writes the cache back.
func Load(fs afero.Fs, dir string, maxN int, policy ngram.TopPolicy, opts keycode.Options) (*Dataset, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, &alcerr.ExpectedDirectoryError{Path: dir}
	}

	cachePath := filepath.Join(filepath.Dir(filepath.Clean(dir)), CacheFileName(dir, maxN, policy, opts))

	if cached, err := loadCache(fs, cachePath); err == nil {
		return cached, nil
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	d := NewDataset(maxN)

	for n := 1; n <= maxN; n++ {
		holder := ngram.NewHolder(n)

		for _, name := range names {
			f, err := fs.Open(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}

			fileHolder, err := ngram.FromReader(f, n, opts)
			closeErr := f.Close()

			if err != nil {
				return nil, err
			}

			if closeErr != nil {
				return nil, closeErr
			}

			if err := holder.Combine(fileHolder); err != nil {
				return nil, err
			}
		}

		holder.TakeTop(policy)
		d.ByN[n] = holder
	}

	if err := saveCache(fs, cachePath, d); err != nil {
		return nil, err
	}

	return d, nil
}

func loadCache(fs afero.Fs, path string) (*Dataset, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rec cacheRecord
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return nil, err
	}

	return fromCacheRecord(rec)
}

func saveCache(fs afero.Fs, path string, d *Dataset) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(toCacheRecord(d))
}
