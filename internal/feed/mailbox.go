package feed

// Mailbox holds at most one undelivered snapshot. Putting a new snapshot
// replaces an older one that has not been received yet, so a slow reader
// only ever sees the latest state.
type Mailbox struct {
	ch chan Snapshot
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan Snapshot, 1)}
}

// Put stores s, dropping any snapshot still waiting. It never blocks.
func (m *Mailbox) Put(s Snapshot) {
	for {
		select {
		case m.ch <- s:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

// C returns the channel snapshots are received from.
func (m *Mailbox) C() <-chan Snapshot {
	return m.ch
}
