package display

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expire(c *Cache) {
	for i := 0; i < 10; i++ { // 1s at 100ms ticks
		c.Tick()
	}
}

func TestNotificationPreemptsCells(t *testing.T) {
	sink := newRecordingSink()
	clock := newFakeClock()
	c := newTestCache(t, sink, clock)

	c.UpdateValue(0, 0, 10)
	c.UpdateElement(0, 1, WithLabel("Vol"))
	settle(clock)
	require.NoError(t, c.Flush())
	sink.reset()

	c.Notify("X")
	assert.True(t, c.IsNotificationActive())
	c.UpdateValue(0, 0, 11)
	settle(clock)

	require.NoError(t, c.Flush())
	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"X"}, sink.screens, "overlay is drawn once per notify")
	assert.Empty(t, sink.values)
	assert.Empty(t, sink.labels)

	msg, ok := c.Notification()
	assert.True(t, ok)
	assert.Equal(t, "X", msg)
}

func TestNotificationExpiryRedrawsEverything(t *testing.T) {
	sink := newRecordingSink()
	clock := newFakeClock()
	c := newTestCache(t, sink, clock)

	c.UpdateValue(0, 0, 10)
	c.UpdateValue(1, 1, 20)
	c.UpdateElement(0, 1, WithLabel("Vol"))
	c.UpdateGroupLabel(0, "Mix")
	settle(clock)
	require.NoError(t, c.Flush())
	sink.reset()

	c.Notify("Tempo 120")
	require.NoError(t, c.Flush())

	for i := 0; i < 9; i++ {
		c.Tick()
	}
	assert.True(t, c.IsNotificationActive())
	c.Tick()
	assert.False(t, c.IsNotificationActive())

	c.UpdateValue(1, 1, 21) // still inside the settle window
	require.NoError(t, c.Flush())

	assert.Equal(t, []string{"Tempo 120", ""}, sink.screens)
	assert.ElementsMatch(t, []valueWrite{{Address{0, 0}, 10}, {Address{1, 1}, 21}}, sink.values)
	require.Len(t, sink.labels, 1)
	assert.Equal(t, "Vol", sink.labels[0].Element.Label)
	assert.Equal(t, []string{"Mix"}, sink.groups[0])

	sink.reset()
	require.NoError(t, c.Flush())
	assert.Zero(t, sink.calls(), "redraw happens once")
}

func TestNotifyReplacesAndRestartsCountdown(t *testing.T) {
	sink := newRecordingSink()
	c := newTestCache(t, sink, newFakeClock())

	c.Notify("one")
	require.NoError(t, c.Flush())
	for i := 0; i < 8; i++ {
		c.Tick()
	}

	c.Notify("two")
	require.NoError(t, c.Flush())
	for i := 0; i < 8; i++ {
		c.Tick()
	}
	assert.True(t, c.IsNotificationActive(), "countdown restarted by second notify")

	msg, _ := c.Notification()
	assert.Equal(t, "two", msg)
	assert.Equal(t, []string{"one", "two"}, sink.screens)

	c.Tick()
	c.Tick()
	assert.False(t, c.IsNotificationActive())
}

func TestCancelNotification(t *testing.T) {
	sink := newRecordingSink()
	clock := newFakeClock()
	c := newTestCache(t, sink, clock)

	c.UpdateElement(0, 0, WithLabel("A"))
	settle(clock)
	require.NoError(t, c.Flush())

	c.Notify("Saved")
	require.NoError(t, c.Flush())
	sink.reset()

	c.CancelNotification()
	assert.False(t, c.IsNotificationActive())
	_, ok := c.Notification()
	assert.False(t, ok)

	require.NoError(t, c.Flush())
	assert.Equal(t, []string{""}, sink.screens)
	require.Len(t, sink.labels, 1)
	assert.Equal(t, "A", sink.labels[0].Element.Label)

	// cancelling when idle does nothing
	sink.reset()
	c.CancelNotification()
	require.NoError(t, c.Flush())
	assert.Zero(t, sink.calls())
}

func TestEndedNotificationDoesNotSkipNextSettle(t *testing.T) {
	for name, end := range map[string]func(c *Cache){
		"cancel": (*Cache).CancelNotification,
		"expire": expire,
	} {
		t.Run(name, func(t *testing.T) {
			sink := newRecordingSink()
			clock := newFakeClock()
			c := newTestCache(t, sink, clock)

			c.Notify("Hi")
			require.NoError(t, c.Flush())
			end(c)
			require.NoError(t, c.Flush())
			assert.Equal(t, []string{"Hi", ""}, sink.screens)
			sink.reset()

			c.UpdateValue(0, 0, 1)
			require.NoError(t, c.Flush())
			assert.Zero(t, sink.calls())

			settle(clock)
			require.NoError(t, c.Flush())
			assert.Len(t, sink.values, 1)
		})
	}
}

func TestNotificationNeverShownIsNotBlanked(t *testing.T) {
	sink := newRecordingSink()
	c := newTestCache(t, sink, newFakeClock())

	c.Notify("gone")
	expire(c)
	require.NoError(t, c.Flush())
	assert.Empty(t, sink.screens)
}

type failingScreenSink struct {
	recordingSink
	fail bool
}

func (s *failingScreenSink) WriteFullScreenText(text string) error {
	if s.fail {
		return errors.New("display asleep")
	}
	return s.recordingSink.WriteFullScreenText(text)
}

func TestFailedNotificationWriteIsRetried(t *testing.T) {
	sink := &failingScreenSink{fail: true}
	c := newTestCache(t, sink, newFakeClock())

	c.Notify("Hello")
	require.Error(t, c.Flush())
	assert.Empty(t, sink.screens)

	sink.fail = false
	require.NoError(t, c.Flush())
	assert.Equal(t, []string{"Hello"}, sink.screens)
}

func TestNotificationDurationRoundsToTicks(t *testing.T) {
	c, err := New(newRecordingSink(), Config{
		Rows:                 1,
		Cols:                 1,
		MaxValue:             1,
		NotificationDuration: 50 * time.Millisecond,
		TickInterval:         100 * time.Millisecond,
	})
	require.NoError(t, err)

	c.Notify("short")
	c.Tick()
	assert.False(t, c.IsNotificationActive(), "durations below one tick last one tick")
}

func TestRunExpiresNotificationAndFlushes(t *testing.T) {
	sink := newRecordingSink()
	c, err := New(sink, Config{
		Rows:                 1,
		Cols:                 2,
		MaxValue:             128,
		SettleWindow:         time.Millisecond,
		NotificationDuration: 20 * time.Millisecond,
		TickInterval:         5 * time.Millisecond,
		FlushInterval:        2 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.UpdateValue(0, 1, 99)
	c.Notify("hi")

	require.Eventually(t, func() bool {
		return !c.IsNotificationActive() && !c.Dirty()
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	sent, known := c.Sent(0, 1)
	assert.True(t, known.Has(FieldValue))
	assert.Equal(t, 99, sent.Value)
}
