// Package funcs implements the deterministic scalar functions exposed to
// the query layer: siphash, fnv and the sharding predicate
// partition_results. All of them are pure; no session state or seed
// participates, so identical inputs hash identically for the lifetime of
// the system.
package funcs

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/dchest/siphash"

	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/value"
)

// ErrArity reports a call with an unsupported argument count.
var ErrArity = errors.New("wrong number of arguments")

// SipHash hashes zero or one value with SipHash-2-4 under a fixed zero key.
// The zero-argument form hashes the canonical encoding of NULL.
func SipHash(args ...value.Value) (uint64, error) {
	arg, err := hashArg("siphash", args)
	if err != nil {
		return 0, err
	}
	return siphash.Hash(0, 0, value.HashBytes(arg)), nil
}

// FNV hashes zero or one value with 64-bit FNV-1a over the same canonical
// encoding SipHash uses.
func FNV(args ...value.Value) (uint64, error) {
	arg, err := hashArg("fnv", args)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	_, _ = h.Write(value.HashBytes(arg))
	return h.Sum64(), nil
}

func hashArg(name string, args []value.Value) (value.Value, error) {
	switch len(args) {
	case 0:
		return value.Null(), nil
	case 1:
		return args[0], nil
	default:
		return value.Null(), fmt.Errorf("%w: %s expects 0 or 1 arguments, got %d", ErrArity, name, len(args))
	}
}

// PartitionResults reports whether value's hash falls into the bucket
// shard_id out of num_shards. For a fixed value and shard count exactly one
// shard id yields true, which is what makes disjoint parallel re-reads of
// one source possible.
func PartitionResults(v, numShards, shardID value.Value) (bool, error) {
	shards, ok := numShards.AsInt()
	if !ok {
		return false, fmt.Errorf("%w: num_shards must be an integer, got %v", options.ErrInvalidOption, numShards)
	}
	shard, ok := shardID.AsInt()
	if !ok {
		return false, fmt.Errorf("%w: shard_id must be an integer, got %v", options.ErrInvalidOption, shardID)
	}
	if shards <= 0 {
		return false, fmt.Errorf("%w: num_shards must be positive, got %d", options.ErrInvalidOption, shards)
	}
	if shard < 0 || shard >= shards {
		return false, fmt.Errorf("%w: shard_id must be in [0, %d), got %d", options.ErrInvalidOption, shards, shard)
	}
	h := siphash.Hash(0, 0, value.HashBytes(v))
	return h%uint64(shards) == uint64(shard), nil
}

// Call dispatches a scalar function by name. Unknown names report
// ErrUnknownFunction.
var ErrUnknownFunction = errors.New("unknown function")

func Call(name string, args []value.Value) (value.Value, error) {
	switch name {
	case "siphash":
		h, err := SipHash(args...)
		if err != nil {
			return value.Null(), err
		}
		return value.Uint64(h), nil
	case "fnv":
		h, err := FNV(args...)
		if err != nil {
			return value.Null(), err
		}
		return value.Uint64(h), nil
	case "partition_results":
		if len(args) != 3 {
			return value.Null(), fmt.Errorf("%w: partition_results expects 3 arguments, got %d", ErrArity, len(args))
		}
		match, err := PartitionResults(args[0], args[1], args[2])
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(match), nil
	default:
		return value.Null(), fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
}
