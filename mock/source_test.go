package mock_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcode/loom"
	"github.com/loomcode/loom/mock"
)

func TestSource_Replay(t *testing.T) {
	t.Parallel()
	s := mock.NewSource(
		loom.MessageStart{},
		loom.MessageStop{},
	)

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, loom.MessageStart{}, ev)

	ev, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, loom.MessageStop{}, ev)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	_, err = s.Next()
	assert.Equal(t, io.EOF, err, "EOF is sticky")
}

func TestSource_TerminalError(t *testing.T) {
	t.Parallel()
	boom := errors.New("stream broke")
	s := mock.NewSource(loom.MessageStart{})
	s.Err = boom

	_, err := s.Next()
	require.NoError(t, err)

	_, err = s.Next()
	assert.ErrorIs(t, err, boom)
}

func TestSource_Close(t *testing.T) {
	t.Parallel()
	s := mock.NewSource(loom.MessageStart{})
	require.NoError(t, s.Close())

	_, err := s.Next()
	assert.ErrorIs(t, err, loom.ErrSourceClosed)
}

func TestClock_TickAndCancel(t *testing.T) {
	t.Parallel()
	c := mock.NewClock()

	fired := 0
	task := c.Schedule(0, func() { fired++ })
	assert.Equal(t, 1, c.Active())

	c.Tick()
	c.Tick()
	assert.Equal(t, 2, fired)

	task.Cancel()
	c.Tick()
	assert.Equal(t, 2, fired, "cancelled tasks stop firing")
	assert.Zero(t, c.Active())
}
