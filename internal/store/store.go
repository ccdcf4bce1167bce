// Package store implements the height-keyed persistent log of committed
// shard chunks and blocks, and the paged range-scan contract used by
// catch-up and the proposers to read committed history.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
)

// RootPrefix distinguishes key spaces sharing one underlying KV engine.
// Each node runs one private store per shard, so in practice only one
// prefix is ever used per store, but the prefix still guards against
// accidental cross-use of a handle.
type RootPrefix byte

const (
	RootPrefixShard RootPrefix = iota + 1
	RootPrefixBlock
)

// ErrTooManyResults surfaces a single-result query (get-last) that matched
// more than one entry. This is a programming error in the caller, not a
// recoverable condition, and is allowed to surface loudly.
var ErrTooManyResults = errors.New("store: too many results for single-entry query")

// ErrMissingHeader names the error of a value that lacks the header its
// height is derived from. PutShardChunk and PutBlock do not return it:
// their value types always carry a header.
var ErrMissingHeader = errors.New("store: value missing header")

// KV is the minimal transactional contract the store needs from the
// underlying engine: point get/set plus a prefix-ordered iterator. Only
// this slice of BadgerDB's API is assumed, per the external-interfaces
// boundary.
type KV interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Iterate(ctx context.Context, prefix []byte, reverse bool, fn func(key, value []byte) (stop bool, err error)) error
	Close() error
}

// PageOptions controls a single page of a range scan.
type PageOptions struct {
	PageSize  int
	Reverse   bool
	PageToken []byte
}

// DefaultPageSize caps an unbounded page request.
const DefaultPageSize = 100

func (o PageOptions) pageSize() int {
	if o.PageSize <= 0 {
		return DefaultPageSize
	}
	return o.PageSize
}

// Page is the paged result of a range scan: up to PageSize entries plus
// an opaque continuation token when more remain.
type Page struct {
	Values        [][]byte
	NextPageToken []byte
}

// makeKey builds [prefix][block_number big-endian 8 bytes]. Big-endian
// encoding keeps lexicographic key order equal to numeric block order,
// which is what makes range scans and "last entry" reverse-scans correct.
func makeKey(prefix RootPrefix, blockNumber uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(prefix)
	binary.BigEndian.PutUint64(key[1:], blockNumber)
	return key
}

// getRange performs one paged scan over [start, stop) under prefix,
// honoring PageOptions. It is the shared engine behind ShardStore and
// BlockStore's range operations.
func getRange(ctx context.Context, kv KV, prefix RootPrefix, startBlockNumber uint64, stopBlockNumber *uint64, opts PageOptions) (Page, error) {
	startKey := makeKey(prefix, startBlockNumber)
	var stopKey []byte
	if stopBlockNumber != nil {
		stopKey = makeKey(prefix, *stopBlockNumber)
	}

	iterPrefix := []byte{byte(prefix)}
	pageSize := opts.pageSize()

	var values [][]byte
	var lastKey []byte
	more := false

	err := kv.Iterate(ctx, iterPrefix, opts.Reverse, func(key, value []byte) (bool, error) {
		if !inRange(key, startKey, stopKey, opts.Reverse) {
			return false, nil
		}
		if !pastToken(key, opts.PageToken, opts.Reverse) {
			return false, nil
		}
		if len(values) >= pageSize {
			more = true
			return true, nil
		}
		values = append(values, append([]byte{}, value...))
		lastKey = append([]byte{}, key...)
		return false, nil
	})
	if err != nil {
		return Page{}, err
	}

	var nextToken []byte
	if more {
		nextToken = lastKey
	}
	return Page{Values: values, NextPageToken: nextToken}, nil
}

func inRange(key, startKey, stopKey []byte, reverse bool) bool {
	if !reverse {
		if bytes.Compare(key, startKey) < 0 {
			return false
		}
		if stopKey != nil && bytes.Compare(key, stopKey) >= 0 {
			return false
		}
		return true
	}
	// Reverse scans walk backwards from the newest key; startKey acts as
	// the floor (inclusive) and stopKey, if set, as the ceiling (exclusive).
	if bytes.Compare(key, startKey) < 0 {
		return false
	}
	if stopKey != nil && bytes.Compare(key, stopKey) >= 0 {
		return false
	}
	return true
}

func pastToken(key, token []byte, reverse bool) bool {
	if len(token) == 0 {
		return true
	}
	cmp := bytes.Compare(key, token)
	if reverse {
		return cmp < 0
	}
	return cmp > 0
}
