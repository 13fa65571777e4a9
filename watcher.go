package gram

import "context"

// Watcher observes a feature source and emits its raw contents when it
// changes. Implementations emit the current contents immediately after
// Watch is called.
type Watcher interface {
	// Watch begins observing the source and returns a channel that emits
	// raw bytes when changes occur. The channel is closed when the context
	// is canceled or an unrecoverable error occurs.
	Watch(ctx context.Context) (<-chan []byte, error)
}
