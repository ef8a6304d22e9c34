package cache

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("FastCache", func() {
	Describe("tag/set split", func() {
		runSplit := func(addr, sets, blockSize uint64, wantSet, wantTag uint64) {
			setBitLen := bitLen(sets)
			blockBitLen := bitLen(blockSize)
			gotSet, gotTag := setNumberAndTag(addr, setBitLen, blockBitLen, 0)
			Expect(gotSet).To(Equal(wantSet))
			Expect(gotTag).To(Equal(wantTag))
		}

		DescribeTable("splitting addresses into set/tag",
			runSplit,
			Entry("block 64, addr 0", uint64(0), uint64(8), uint64(64), uint64(0), uint64(0)),
			Entry("block 64, addr 63 stays in block 0", uint64(63), uint64(8), uint64(64), uint64(0), uint64(0)),
			Entry("block 64, addr 64 moves to set 1", uint64(64), uint64(8), uint64(64), uint64(1), uint64(64)),
			Entry("block 64, set wraps at 8 sets", uint64(64*8), uint64(8), uint64(64), uint64(0), uint64(512)),
		)
	})

	Describe("Access", func() {
		var g Geometry

		BeforeEach(func() {
			g = Geometry{Sets: 4, Associativity: 2, BlockSize: 64, Channels: 1}
		})

		It("reports a miss then a hit on the same address", func() {
			c := NewFastCache(g)
			r1 := c.Access(0)
			Expect(r1.Hit).To(BeFalse())
			r2 := c.Access(0)
			Expect(r2.Hit).To(BeTrue())
			Expect(r2.Tag).To(Equal(r1.Tag))
		})

		It("evicts round-robin once a set fills up", func() {
			c := NewFastCache(g)
			// Three distinct tags mapping to the same set (stride = sets*blockSize).
			stride := g.Sets * g.BlockSize
			a0, a1, a2 := uint64(0), stride, 2*stride

			Expect(c.Access(a0).Hit).To(BeFalse())
			Expect(c.Access(a1).Hit).To(BeFalse())
			// Associativity is 2: both still resident.
			Expect(c.Access(a0).Hit).To(BeTrue())
			Expect(c.Access(a1).Hit).To(BeTrue())

			// a2 evicts the oldest line (a0, FIFO/round-robin ptr at 0).
			Expect(c.Access(a2).Hit).To(BeFalse())
			Expect(c.Access(a1).Hit).To(BeTrue())
			Expect(c.Access(a0).Hit).To(BeFalse())
		})

		It("always hits when AlwaysHit is set", func() {
			g.AlwaysHit = true
			c := NewFastCache(g)
			Expect(c.Access(0).Hit).To(BeTrue())
			Expect(c.Access(4096).Hit).To(BeTrue())
		})

		It("tagOf matches the tag Access would compute, without installing", func() {
			c := NewFastCache(g)
			tag := c.tagOf(128)
			r := c.Access(128)
			Expect(r.Hit).To(BeFalse())
			Expect(r.Tag).To(Equal(tag))
		})
	})
})
