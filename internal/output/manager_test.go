package output

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkA struct {
	writes   []any
	writeErr error
	closeErr error
}

func (s *sinkA) Write(v any) error {
	s.writes = append(s.writes, v)
	return s.writeErr
}

func (s *sinkA) Close() error {
	return s.closeErr
}

type sinkB struct {
	writes   []any
	writeErr error
	closeErr error
}

func (s *sinkB) Write(v any) error {
	s.writes = append(s.writes, v)
	return s.writeErr
}

func (s *sinkB) Close() error {
	return s.closeErr
}

func TestManager(t *testing.T) {
	t.Run("writes to all sinks", func(t *testing.T) {
		a := &sinkA{}
		b := &sinkB{}

		mgr := NewManager()
		require.NoError(t, mgr.AddSink(a))
		require.NoError(t, mgr.AddSink(b))

		require.NoError(t, mgr.Write("v1"))
		require.NoError(t, mgr.Write("v2"))
		require.NoError(t, mgr.Close())

		assert.Len(t, a.writes, 2)
		assert.Len(t, b.writes, 2)
	})

	t.Run("AddSink rejects nil", func(t *testing.T) {
		mgr := NewManager()
		assert.Error(t, mgr.AddSink(nil))
	})

	t.Run("Write aggregates sink errors", func(t *testing.T) {
		a := &sinkA{writeErr: errors.New("boom-a")}
		b := &sinkB{writeErr: errors.New("boom-b")}
		mgr := NewManager()
		require.NoError(t, mgr.AddSink(a))
		require.NoError(t, mgr.AddSink(b))

		err := mgr.Write("v")
		require.Error(t, err)
		for _, want := range []string{"errors writing to sinks", "boom-a", "boom-b", "sinkA", "sinkB"} {
			assert.ErrorContains(t, err, want)
		}
	})

	t.Run("Close aggregates sink errors", func(t *testing.T) {
		a := &sinkA{closeErr: errors.New("close-a")}
		b := &sinkB{closeErr: errors.New("close-b")}
		mgr := NewManager()
		require.NoError(t, mgr.AddSink(a))
		require.NoError(t, mgr.AddSink(b))

		err := mgr.Close()
		require.Error(t, err)
		for _, want := range []string{"errors closing sinks", "close-a", "close-b", "sinkA", "sinkB"} {
			assert.ErrorContains(t, err, want)
		}
	})

	t.Run("Close is idempotent and rejects later writes", func(t *testing.T) {
		a := &sinkA{}
		mgr := NewManager()
		require.NoError(t, mgr.AddSink(a))
		require.NoError(t, mgr.Close())
		require.NoError(t, mgr.Close(), "second Close")
		assert.Error(t, mgr.Write("late"), "Write after Close")
		assert.Empty(t, a.writes)
	})

	t.Run("concurrent writes reach every sink", func(t *testing.T) {
		a := &sinkA{}
		mgr := NewManager()
		require.NoError(t, mgr.AddSink(a))
		require.Equal(t, 1, mgr.Len())

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = mgr.Write("v")
			}()
		}
		wg.Wait()

		assert.Len(t, a.writes, 20)
	})
}
