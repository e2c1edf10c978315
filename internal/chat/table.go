package chat

// Slot is one entry of the connection table. Slot 0 holds the listener and
// has no Peer.
type Slot struct {
	FD   int
	Peer *Peer

	dead bool
}

// Table is the ordered set of descriptors watched by the loop. It is owned by
// a single goroutine and does no I/O itself.
type Table struct {
	slots    []Slot
	maxPeers int
}

func NewTable(listenerFD, maxPeers int) *Table {
	slots := make([]Slot, 1, maxPeers+1)
	slots[0] = Slot{FD: listenerFD}
	return &Table{slots: slots, maxPeers: maxPeers}
}

// Len is the number of slots, listener included.
func (t *Table) Len() int { return len(t.slots) }

// Peers counts peer slots, including ones marked but not yet compacted.
func (t *Table) Peers() int { return len(t.slots) - 1 }

func (t *Table) Capacity() int { return t.maxPeers }

func (t *Table) Full() bool { return t.Peers() >= t.maxPeers }

func (t *Table) Slot(i int) Slot { return t.slots[i] }

// Add appends p as a new live slot.
func (t *Table) Add(p *Peer) error {
	if t.Full() {
		return ErrTableFull
	}
	t.slots = append(t.slots, Slot{FD: p.FD, Peer: p})
	return nil
}

// Mark flags slot i for removal at the next Compact. The listener slot can't
// be marked.
func (t *Table) Mark(i int) {
	if i <= 0 || i >= len(t.slots) {
		return
	}
	t.slots[i].dead = true
}

func (t *Table) Marked(i int) bool { return t.slots[i].dead }

// Compact drops every marked slot, keeping survivors in their relative order,
// and returns the removed slots so the caller can close them.
func (t *Table) Compact() []Slot {
	var removed []Slot
	live := t.slots[:1]
	for _, s := range t.slots[1:] {
		if s.dead {
			removed = append(removed, s)
			continue
		}
		live = append(live, s)
	}
	clear(t.slots[len(live):])
	t.slots = live
	return removed
}

// Reset empties the table, listener included, and returns what it held.
func (t *Table) Reset() []Slot {
	all := append([]Slot(nil), t.slots...)
	clear(t.slots)
	t.slots = t.slots[:0]
	return all
}
