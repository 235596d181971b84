package agent

import "sync"

// ModelSwitch is a mailbox the switch_model tool writes into and the loop
// drains at the top of each iteration, changing state.Model mid-turn.
type ModelSwitch struct {
	mu      sync.Mutex
	pending string
}

// Request queues a model slot switch, overwriting any unread pending switch.
func (s *ModelSwitch) Request(slot string) {
	if s == nil || slot == "" {
		return
	}
	s.mu.Lock()
	s.pending = slot
	s.mu.Unlock()
}

// Take returns and clears the pending switch, if any.
func (s *ModelSwitch) Take() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	slot := s.pending
	s.pending = ""
	s.mu.Unlock()
	return slot, slot != ""
}
