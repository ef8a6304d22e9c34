package sim

import "sync/atomic"

// ErrEmpty/ErrFull are not modeled as errors at all per the back-pressure
// design (spec §4.2): Send returns the refused payload, Recv reports ok=false.
// Channels are single-producer/single-consumer, unbuffered by anything but
// their own bounded queue, and touched from exactly one goroutine (the
// scheduler's tick loop) — no locking.

// Channel is a bounded FIFO shared by one producer and one consumer within
// a tick. Grounded on sim.rs's SimSender/SimReciver pair; here sender and
// receiver are both thin views over one shared Channel so Send/Recv/Ret
// can live on the same type without an Rc<UnsafeCell<..>> indirection.
type Channel[T any] struct {
	buf      []T
	capacity int
	// outstanding counts Ret calls: a consumer popped a value and then
	// failed to forward it downstream. Exposed for diagnostics, grounded
	// on xact/xs/tcobjs.go's chanFull atomic accounting.
	outstanding atomic.Int64
}

// NewChannel builds a channel with the given bounded capacity.
func NewChannel[T any](capacity int) *Channel[T] {
	return &Channel[T]{capacity: capacity}
}

// Send appends x to the tail. On success returns ok=true. On failure (full)
// returns ok=false and the original x, which the caller owns again.
func (c *Channel[T]) Send(x T) (ok bool, refused T) {
	if len(c.buf) >= c.capacity {
		return false, x
	}
	c.buf = append(c.buf, x)
	return true, refused
}

// Recv pops the head. ok=false when empty.
func (c *Channel[T]) Recv() (x T, ok bool) {
	if len(c.buf) == 0 {
		return x, false
	}
	x = c.buf[0]
	c.buf = c.buf[1:]
	return x, true
}

// Ret unshifts x back to the head, used exclusively by a consumer that
// popped a value and then could not place it downstream this tick.
func (c *Channel[T]) Ret(x T) {
	c.buf = append([]T{x}, c.buf...)
	c.outstanding.Add(1)
}

func (c *Channel[T]) Len() int { return len(c.buf) }

func (c *Channel[T]) HaveSpace() bool { return len(c.buf) < c.capacity }

func (c *Channel[T]) Outstanding() int64 { return c.outstanding.Load() }

// Port is the producer-facing handle: Send only.
type Port[T any] struct{ ch *Channel[T] }

func (p Port[T]) Send(x T) (ok bool, refused T) { return p.ch.Send(x) }
func (p Port[T]) HaveSpace() bool               { return p.ch.HaveSpace() }

// InPort is the consumer-facing handle: Recv and Ret.
type InPort[T any] struct{ ch *Channel[T] }

func (p InPort[T]) Recv() (T, bool) { return p.ch.Recv() }
func (p InPort[T]) Ret(x T)         { p.ch.Ret(x) }
func (p InPort[T]) Len() int        { return p.ch.Len() }

// NewPorts builds one channel and returns its producer/consumer views,
// grounded on sim.rs's ChannelBuilder::sim_channel.
func NewPorts[T any](capacity int) (Port[T], InPort[T]) {
	ch := NewChannel[T](capacity)
	return Port[T]{ch}, InPort[T]{ch}
}

// InOutPort bundles a consumer and a producer side, the shape every ICNT
// and tile port list uses (grounded on sim.rs's InOutPort<T>).
type InOutPort[T any] struct {
	In  InPort[T]
	Out Port[T]
}

// NewInOutPortArray builds n independent bidirectional links and returns
// both endpoints of each, grounded on ChannelBuilder::in_out_poat_array.
func NewInOutPortArray[T any](capacity, n int) (base, far []InOutPort[T]) {
	base = make([]InOutPort[T], n)
	far = make([]InOutPort[T], n)
	for i := 0; i < n; i++ {
		outBase, inFar := NewPorts[T](capacity)
		outFar, inBase := NewPorts[T](capacity)
		base[i] = InOutPort[T]{In: inBase, Out: outBase}
		far[i] = InOutPort[T]{In: inFar, Out: outFar}
	}
	return base, far
}
