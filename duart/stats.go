// duart/stats.go

//go:build duartdebug

package duart

import "sync/atomic"

// Stats holds per-channel counters since the last reset.
type Stats struct {
	TxServices   uint32 // transmit-complete signals serviced
	RxServices   uint32 // receive-complete signals serviced
	HandlerCalls uint32 // bytes delivered to an installed receive handler
	RingPuts     uint32 // received bytes enqueued into the rx ring
	RingDrops    uint32 // received bytes dropped (overflow)
	RingMaxUsed  uint32 // high-water mark of rx ring occupancy
}

func (c *channel) statTxService() {
	atomic.AddUint32(&c.stats.TxServices, 1)
}

func (c *channel) statRxHandled() {
	atomic.AddUint32(&c.stats.RxServices, 1)
	atomic.AddUint32(&c.stats.HandlerCalls, 1)
}

func (c *channel) statRxRing(putOK bool) {
	atomic.AddUint32(&c.stats.RxServices, 1)
	if !putOK {
		atomic.AddUint32(&c.stats.RingDrops, 1)
		return
	}
	atomic.AddUint32(&c.stats.RingPuts, 1)
	used := uint32(c.rx.Used())
	for {
		max := atomic.LoadUint32(&c.stats.RingMaxUsed)
		if used <= max {
			break
		}
		if atomic.CompareAndSwapUint32(&c.stats.RingMaxUsed, max, used) {
			break
		}
	}
}

// DebugStats returns a copy of the channel's counters.
func (d *Driver) DebugStats(ch int) Stats {
	c := d.channel(ch)
	if c == nil {
		return Stats{}
	}
	return Stats{
		TxServices:   atomic.LoadUint32(&c.stats.TxServices),
		RxServices:   atomic.LoadUint32(&c.stats.RxServices),
		HandlerCalls: atomic.LoadUint32(&c.stats.HandlerCalls),
		RingPuts:     atomic.LoadUint32(&c.stats.RingPuts),
		RingDrops:    atomic.LoadUint32(&c.stats.RingDrops),
		RingMaxUsed:  atomic.LoadUint32(&c.stats.RingMaxUsed),
	}
}

// DebugReset zeroes the channel's counters.
func (d *Driver) DebugReset(ch int) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	c.stats = Stats{}
}
