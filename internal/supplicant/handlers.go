package supplicant

type handlerEntry[P comparable] struct {
	id   HandlerID
	prop P
	fn   func(P)
}

// handlerSet holds property-change handlers in registration order.
type handlerSet[P comparable] struct {
	next    HandlerID
	entries []handlerEntry[P]
}

func (s *handlerSet[P]) add(p P, fn func(P)) HandlerID {
	if fn == nil {
		return 0
	}
	s.next++
	s.entries = append(s.entries, handlerEntry[P]{id: s.next, prop: p, fn: fn})
	return s.next
}

func (s *handlerSet[P]) remove(ids ...HandlerID) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
				break
			}
		}
	}
}

func (s *handlerSet[P]) has(id HandlerID) bool {
	for _, e := range s.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

func (s *handlerSet[P]) len() int {
	return len(s.entries)
}

func (s *handlerSet[P]) clear() {
	s.entries = nil
}

// emit calls every handler registered for p. A handler removed by an
// earlier handler in the same emission is skipped.
func (s *handlerSet[P]) emit(p P) {
	snapshot := make([]handlerEntry[P], len(s.entries))
	copy(snapshot, s.entries)
	for _, e := range snapshot {
		if e.prop != p || !s.has(e.id) {
			continue
		}
		e.fn(p)
	}
}
