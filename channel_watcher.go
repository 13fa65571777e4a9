package gram

import "context"

// ChannelWatcher wraps an existing byte channel as a Watcher. Useful for
// tests and for sources that already push change notifications, such as a
// udev listener.
type ChannelWatcher struct {
	ch <-chan []byte
}

// NewChannelWatcher creates a ChannelWatcher forwarding values from ch.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// Watch returns a channel that emits values from the wrapped channel until
// ctx is canceled or the wrapped channel closes.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-w.ch:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
