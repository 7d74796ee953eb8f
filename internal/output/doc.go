// Package output fans captured service output out to subscribers.
//
// A [Broadcaster] accepts chunks from each running service (usually through
// the io.Writer returned by [Broadcaster.Writer], attached to the process
// pipes) and delivers them to per-service sinks and to aggregate sinks that
// see every service. Each sink has its own unbounded mailbox and delivery
// goroutine, so capturing output never waits on a consumer.
//
// The broadcaster also keeps a bounded tail of recent output per service in
// a [RingBuffer], so a subscriber that arrives late can show context.
//
//	b := output.NewBroadcaster(output.DefaultTailBytes, logger)
//	defer b.Close()
//
//	b.SubscribeAll(output.SinkFunc(func(c output.Chunk) {
//	    fmt.Printf("[%s] %s", c.ServiceID, c.Data)
//	}))
//	cmd.Stdout = b.Writer("auth", output.Stdout)
package output
