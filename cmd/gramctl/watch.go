package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zoobzio/gram"
)

func (a *app) watch(ctx context.Context, params []string) error {
	if len(params) != 1 {
		return fmt.Errorf("%w: watch takes one setting", gram.ErrUsage)
	}
	store := a.cfg.Store()
	loop := newEventLoop()

	selector := gram.NewSelector()
	ctrl := gram.New(a.cfg.Applier(), store, selector).
		Dispatch(loop.post(ctx)).
		OnError(func(_ context.Context, err error) {
			a.logger.Error("watch", "error", err)
		})
	if err := ctrl.Init(ctx, params[0]); err != nil {
		return err
	}

	setting, _ := ctrl.Setting()
	show := func() {
		if choice, ok := setting.Choice(selector.Selected()); ok {
			fmt.Fprintf(a.stdout, "%s: %s (%s)\n", setting.ID, choice.Label, choice.Value)
		}
	}
	show()
	selector.OnChanged(show)

	if err := ctrl.Watch(ctx, gram.NewFeatureWatcher(store, setting.ID)); err != nil {
		return err
	}
	// Hotkey and firmware changes never reach inotify.
	if err := ctrl.Watch(ctx, signalWatcher(ctx, syscall.SIGHUP)); err != nil {
		return err
	}

	loop.run(ctx)
	return nil
}

// eventLoop runs posted functions one at a time on the goroutine that calls
// run, standing in for a toolkit main loop.
type eventLoop struct {
	events chan func()
}

func newEventLoop() *eventLoop {
	return &eventLoop{events: make(chan func(), 16)}
}

// post returns a dispatcher for Controller.Dispatch. Posts after ctx is
// done are dropped.
func (l *eventLoop) post(ctx context.Context) func(func()) {
	return func(fn func()) {
		select {
		case l.events <- fn:
		case <-ctx.Done():
		}
	}
}

func (l *eventLoop) run(ctx context.Context) {
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// signalWatcher reports a change every time one of sigs arrives.
func signalWatcher(ctx context.Context, sigs ...os.Signal) *gram.ChannelWatcher {
	caught := make(chan os.Signal, 1)
	signal.Notify(caught, sigs...)

	pings := make(chan []byte)
	go func() {
		defer close(pings)
		defer signal.Stop(caught)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-caught:
				select {
				case pings <- []byte(sig.String()):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return gram.NewChannelWatcher(pings)
}
