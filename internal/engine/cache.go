package engine

import (
	"math/bits"

	"github.com/dshills/taphold/internal/key"
)

// releaseCacheSize is the number of deferrable releases. The slot masks
// are a single byte, so this must not exceed 8.
const releaseCacheSize = 8

// cachedRelease is one deferred release with the keycode it carried when
// it arrived.
type cachedRelease struct {
	code key.Code
	rec  key.Record
}

// releaseCache defers releases that physically precede a decision, so the
// host sees them in insertion order once the decision flushes them. Two
// parallel bitmasks give O(1) slot allocation via count-trailing-zeros:
// used marks occupied slots, before marks releases that happened before
// the second key was pressed.
type releaseCache struct {
	records [releaseCacheSize]cachedRelease
	used    uint8
	before  uint8
}

// add stores a release. It reports false when every slot is taken, in
// which case the caller must process the release immediately.
func (c *releaseCache) add(code key.Code, rec key.Record, beforeSecond bool) bool {
	free := ^c.used
	if free == 0 {
		return false
	}
	i := uint8(bits.TrailingZeros8(free))
	c.records[i] = cachedRelease{code: code, rec: rec}
	if beforeSecond {
		c.before |= 1 << i
	} else {
		c.before &^= 1 << i
	}
	c.used |= 1 << i
	return true
}

// take removes and returns the slot mask for one partition. Slots flush
// in index order, which is insertion order because allocation always
// picks the lowest free slot while the cache only grows between flushes.
func (c *releaseCache) take(beforeSecond bool) uint8 {
	part := c.before
	if !beforeSecond {
		part = ^part
	}
	mask := c.used & part
	c.used &^= mask
	return mask
}

// tapSetSize is the capacity of the tap-release set; its mask is a byte.
const tapSetSize = 8

// tapSet remembers positions of tap-hold keys that were committed as tap
// but are still physically down, so their eventual release emits an
// unregister-as-tap instead of the default unregister-as-hold. Keyed on
// position, not keycode: a release may arrive resolved on a different
// layer than its press.
type tapSet struct {
	positions [tapSetSize]key.Pos
	used      uint8
}

// add stores a position, reporting false when the set is full. A dropped
// position degrades to the default hold release.
func (s *tapSet) add(pos key.Pos) bool {
	free := ^s.used
	if free == 0 {
		return false
	}
	i := uint8(bits.TrailingZeros8(free))
	s.positions[i] = pos
	s.used |= 1 << i
	return true
}

// remove deletes pos from the set, reporting whether it was present.
func (s *tapSet) remove(pos key.Pos) bool {
	rest := s.used
	for rest != 0 {
		i := uint8(bits.TrailingZeros8(rest))
		if s.positions[i] == pos {
			s.used &^= 1 << i
			return true
		}
		rest &^= 1 << i
	}
	return false
}
