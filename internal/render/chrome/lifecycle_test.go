package chrome

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleTracker_EventBeforeWait(t *testing.T) {
	tr := newLifecycleTracker()
	tr.record("loader-1", "load")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, tr.wait(ctx, "loader-1", "load"))
}

func TestLifecycleTracker_EventAfterWait(t *testing.T) {
	tr := newLifecycleTracker()

	done := make(chan error, 1)
	go func() {
		done <- tr.wait(context.Background(), "loader-1", "networkIdle")
	}()

	tr.record("loader-1", "load")
	select {
	case <-done:
		t.Fatal("wait returned before networkIdle fired")
	case <-time.After(50 * time.Millisecond):
	}

	tr.record("loader-1", "networkIdle")
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after networkIdle fired")
	}
}

func TestLifecycleTracker_OtherLoaderIgnored(t *testing.T) {
	tr := newLifecycleTracker()
	tr.record("loader-old", "load")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tr.wait(ctx, "loader-new", "load")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLifecycleTracker_SameDocumentNavigation(t *testing.T) {
	tr := newLifecycleTracker()
	tr.setCurrent("")

	loader, ok := tr.latest()
	require.True(t, ok)
	assert.Equal(t, cdp.LoaderID(""), loader)
	assert.NoError(t, tr.wait(context.Background(), loader, "load"))
}

func TestLifecycleTracker_Latest(t *testing.T) {
	tr := newLifecycleTracker()

	_, ok := tr.latest()
	assert.False(t, ok)

	tr.setCurrent("a")
	tr.setCurrent("b")
	loader, ok := tr.latest()
	assert.True(t, ok)
	assert.Equal(t, cdp.LoaderID("b"), loader)
}
