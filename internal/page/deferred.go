package page

import (
	"context"
	"sort"
)

// Deferred is a value a loader returns before it is known. It starts
// resolving as soon as it is created.
type Deferred struct {
	id    string
	done  chan struct{}
	value any
	err   error
}

// Defer runs fn in its own goroutine and returns a handle to its result.
func Defer(fn func() (any, error)) *Deferred {
	d := &Deferred{done: make(chan struct{})}
	go func() {
		defer close(d.done)
		d.value, d.err = fn()
	}()
	return d
}

// ID is the DOM id of the placeholder element for this value.
func (d *Deferred) ID() string {
	return d.id
}

// Done is closed once the value is resolved.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the value resolves or ctx is done.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type deferredEntry struct {
	key string
	d   *Deferred
}

// collectDeferred assigns placeholder ids and returns the deferred values of
// data in key order.
func collectDeferred(data Data) []deferredEntry {
	var entries []deferredEntry
	for key, v := range data {
		if d, ok := v.(*Deferred); ok {
			d.id = "deferred-" + key
			entries = append(entries, deferredEntry{key: key, d: d})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries
}

// resolveAll replaces every deferred value with its result.
func resolveAll(ctx context.Context, data Data) (Data, error) {
	out := make(Data, len(data))
	for key, v := range data {
		d, ok := v.(*Deferred)
		if !ok {
			out[key] = v
			continue
		}
		value, err := d.Wait(ctx)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}
