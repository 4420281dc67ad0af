package models

import "iter"

// Dataset maps entry keys to entries, preserving insertion order.
// Setting an existing key replaces its entry but keeps its position.
type Dataset struct {
	keys    []string
	entries map[string]Entry
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{entries: make(map[string]Entry)}
}

// Set stores e under key.
func (d *Dataset) Set(key string, e Entry) {
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = e
}

// Get returns the entry stored under key.
func (d *Dataset) Get(key string) (Entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

// Len returns the number of entries.
func (d *Dataset) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dataset) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// All iterates over the entries in insertion order.
func (d *Dataset) All() iter.Seq2[string, Entry] {
	return func(yield func(string, Entry) bool) {
		for _, k := range d.keys {
			if !yield(k, d.entries[k]) {
				return
			}
		}
	}
}
