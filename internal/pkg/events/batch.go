package events

import "context"

// Batch collects the notifications of one call. They are published only after the
// call's transaction committed, so a rolled back call emits nothing.
type Batch struct {
	events []Event
}

func (b *Batch) Add(e Event) {
	b.events = append(b.events, e)
}

func (b *Batch) Events() []Event {
	return b.events
}

// Publish blocks on a full sink until ctx is done; events not yet sent are dropped then.
func (b *Batch) Publish(ctx context.Context, sink chan<- Event) {
	defer func() {
		b.events = nil
	}()

	if sink == nil {
		return
	}

	for _, e := range b.events {
		select {
		case sink <- e:
		case <-ctx.Done():
			return
		}
	}
}
