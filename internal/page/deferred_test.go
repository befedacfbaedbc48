package page

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferWait(t *testing.T) {
	d := Defer(func() (any, error) { return 7, nil })

	v, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestDeferWaitCanceled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := Defer(func() (any, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectDeferredAssignsIDs(t *testing.T) {
	a := Defer(func() (any, error) { return nil, nil })
	b := Defer(func() (any, error) { return nil, nil })
	entries := collectDeferred(Data{"zeta": a, "alpha": b, "plain": 1})

	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].key)
	assert.Equal(t, "zeta", entries[1].key)
	assert.Equal(t, "deferred-alpha", b.ID())
	assert.Equal(t, "deferred-zeta", a.ID())
}
