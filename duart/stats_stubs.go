// duart/stats_stubs.go

//go:build !duartdebug

package duart

type Stats struct{}

func (c *channel) statTxService()  {}
func (c *channel) statRxHandled()  {}
func (c *channel) statRxRing(bool) {}

func (d *Driver) DebugStats(ch int) Stats { return Stats{} }
func (d *Driver) DebugReset(ch int)       {}
