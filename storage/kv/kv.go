// Copyright 2014-2015 The Coname Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package kv contains a generic interface for ordered key-value databases
// with support for batch writes. All operations are safe for concurrent
// use, atomic and synchronously persistent.
package kv

// DB is an abstract ordered key-value store. After Put(k, v) has
// returned, and as long as no other Put(k, ?) has happened, Get(k) must
// return v, even across a restart. Write(...) applies a batch of Put-s
// and Delete-s atomically.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	Write(Batch) error
	NewIterator(*Range) Iterator
	Close() error

	// ErrNotFound is the error Get returns for a missing key.
	ErrNotFound() error
}

// A Batch contains a sequence of Put-s and Delete-s waiting to be
// written to a DB.
type Batch interface {
	Reset()
	Put(key, value []byte)
	Delete(key []byte)
}

// Iterator walks the entries of a Range in key order. It must be valid to
// call Error() after Release(). The boolean return values indicate
// whether the requested entry exists.
type Iterator interface {
	Key() []byte
	Value() []byte
	First() bool
	Next() bool
	Last() bool
	Release()
	Error() error
}

// Range is a key range.
type Range struct {
	// Start of the key range, included in the range.
	Start []byte
	// Limit of the key range, not included. nil means no limit.
	Limit []byte
}

// IncrementKey returns the first key greater than all keys prefixed by
// prefix, or nil if there is none.
func IncrementKey(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if c := prefix[i]; c < 0xff {
			limit := make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			return limit
		}
	}
	return nil
}

// BytesPrefix returns the range of keys starting with prefix.
func BytesPrefix(prefix []byte) *Range {
	return &Range{Start: prefix, Limit: IncrementKey(prefix)}
}
