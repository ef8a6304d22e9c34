// Package cache implements the set-associative tag array and its two
// latency models (fixed-latency and DRAM-backed), grounded on
// original_source/rusttools/src/satacc/cache/{mod,fast_cache,
// cache_with_fix_time,cache_with_ramulator}.rs.
package cache

import (
	"encoding/binary"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// bitLen returns the number of bits needed to index n distinct values,
// grounded on cache/mod.rs::get_bit_lens (successive halving).
func bitLen(n uint64) uint64 {
	var bits uint64
	for n > 1 {
		n >>= 1
		bits++
	}
	return bits
}

// setNumberAndTag splits an address into (set index, tag) per spec §3's
// cache-tag-state invariants: tag = addr & ~(block_size-1), set index =
// (addr >> log2(block_size)) & (sets-1). Grounded on
// cache/mod.rs::get_set_number_from_addr.
func setNumberAndTag(addr uint64, setBitLen, blockBitLen, _channelBitLen uint64) (setNumber, tag uint64) {
	blockMask := (uint64(1) << blockBitLen) - 1
	tag = addr &^ blockMask
	setMask := (uint64(1) << setBitLen) - 1
	setNumber = (addr >> blockBitLen) & setMask
	return setNumber, tag
}

// AccessResult is the Go idiomatic substitute for the original's
// `AccessResult` enum-with-payload (`Hit(u64)`/`Miss(u64)`, accessed via a
// derived EnumAsInner): an explicit struct field replaces the
// derive-macro accessor.
type AccessResult struct {
	Hit bool
	Tag uint64
}

// Geometry configures a FastCache instance, grounded on
// cache/fast_cache.rs::CacheConfig (renamed AlwaysHit from the original's
// "alway_hit" typo).
type Geometry struct {
	Sets          uint64
	Associativity uint64
	BlockSize     uint64
	Channels      uint64
	AlwaysHit     bool
}

type set struct {
	lines      []uint64
	replacePtr int
}

// FastCache is the tag array: per-set bag of tags with round-robin
// eviction. Grounded on cache/fast_cache.rs::FastCache.
type FastCache struct {
	geometry    Geometry
	sets        []set
	setBitLen   uint64
	blockBitLen uint64
	chanBitLen  uint64

	// residency is a probabilistic pre-filter over resident tags: a
	// cuckoo-filter negative lets Access skip the per-set linear walk on
	// a guaranteed miss. An evicted tag is deleted from it, since cuckoo
	// filters support targeted deletion (unlike a Bloom filter, which
	// does not) — that is precisely why this library was chosen over a
	// plain Bloom filter for this role.
	residency *cuckoo.Filter
}

func NewFastCache(g Geometry) *FastCache {
	sets := make([]set, g.Sets)
	return &FastCache{
		geometry:    g,
		sets:        sets,
		setBitLen:   bitLen(g.Sets),
		blockBitLen: bitLen(g.BlockSize),
		chanBitLen:  bitLen(g.Channels),
		residency:   cuckoo.NewFilter(1024),
	}
}

func tagKey(tag uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], tag)
	return b[:]
}

// tagOf returns the tag for addr without touching residency state, used
// by WithDRAM to key a retried blocked request.
func (c *FastCache) tagOf(addr uint64) uint64 {
	_, tag := setNumberAndTag(addr, c.setBitLen, c.blockBitLen, c.chanBitLen)
	return tag
}

// Access performs a tag lookup with FIFO (round-robin) eviction on miss,
// grounded on cache/fast_cache.rs::FastCache::access.
func (c *FastCache) Access(addr uint64) AccessResult {
	setNumber, tag := setNumberAndTag(addr, c.setBitLen, c.blockBitLen, c.chanBitLen)
	if c.geometry.AlwaysHit {
		return AccessResult{Hit: true, Tag: tag}
	}
	key := tagKey(tag)
	if !c.residency.Lookup(key) {
		return c.install(setNumber, tag, key)
	}
	s := &c.sets[setNumber]
	for _, line := range s.lines {
		if line == tag {
			return AccessResult{Hit: true, Tag: tag}
		}
	}
	// Filter said maybe-present but the set disagrees: a false positive
	// from a different set's tag sharing the same filter fingerprint.
	return c.install(setNumber, tag, key)
}

func (c *FastCache) install(setNumber, tag uint64, key []byte) AccessResult {
	s := &c.sets[setNumber]
	if uint64(len(s.lines)) < c.geometry.Associativity {
		s.lines = append(s.lines, tag)
	} else {
		evicted := s.lines[s.replacePtr]
		c.residency.Delete(tagKey(evicted))
		s.lines[s.replacePtr] = tag
		s.replacePtr = (s.replacePtr + 1) % int(c.geometry.Associativity)
	}
	c.residency.Insert(key)
	return AccessResult{Hit: false, Tag: tag}
}
