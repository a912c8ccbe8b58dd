package rpc

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/protobuf"
)

type echo struct {
	Value int64
}

func (e *echo) Validate() error {
	if e.Value < 0 {
		return errors.New("negative value")
	}
	return nil
}

func echoHandler() Handler {
	return Typed(func(req *echo) (*echo, error) {
		return &echo{Value: req.Value + 1}, nil
	})
}

func TestDispatcher_Dispatch(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("echo", echoHandler()))

	body, err := protobuf.Encode(&echo{Value: 41})
	require.NoError(t, err)
	resp, err := d.Dispatch("echo", body)
	require.NoError(t, err)
	var out echo
	require.NoError(t, protobuf.Decode(resp, &out))
	require.Equal(t, int64(42), out.Value)

	_, err = d.Dispatch("nope", body)
	require.ErrorIs(t, err, ErrMethodNotFound)
	require.Contains(t, err.Error(), "nope")
}

func TestDispatcher_Validation(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("echo", echoHandler()))

	body, err := protobuf.Encode(&echo{Value: -1})
	require.NoError(t, err)
	_, err = d.Dispatch("echo", body)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "negative value")

	_, err = d.Dispatch("echo", []byte{0xff, 0xff, 0xff})
	require.ErrorIs(t, err, ErrParse)
}

func TestDispatcher_HandlerFailures(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("fail", func([]byte) ([]byte, error) {
		return nil, errors.New("auction already closed")
	}))
	require.NoError(t, d.Register("panic", func([]byte) ([]byte, error) {
		panic("boom")
	}))

	_, err := d.Dispatch("fail", nil)
	require.ErrorIs(t, err, ErrFailed)
	require.Contains(t, err.Error(), "auction already closed")

	_, err = d.Dispatch("panic", nil)
	require.ErrorIs(t, err, ErrInternal)

	// The dispatcher keeps working after a panic.
	_, err = d.Dispatch("fail", nil)
	require.ErrorIs(t, err, ErrFailed)
}

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher()
	require.Error(t, d.Register("", echoHandler()))
	require.Error(t, d.Register("x", nil))

	require.NoError(t, d.Register("b", echoHandler()))
	require.NoError(t, d.Register("a", echoHandler()))
	require.NoError(t, d.Register("a", echoHandler()))
	require.Equal(t, []string{"a", "b"}, d.Methods())

	d.Seal()
	require.ErrorIs(t, d.Register("c", echoHandler()), ErrSealed)
	require.Equal(t, []string{"a", "b"}, d.Methods())
}

func TestDispatcher_Concurrent(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("echo", echoHandler()))
	body, err := protobuf.Encode(&echo{Value: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch("echo", body)
			require.NoError(t, err)
		}()
	}
	wg.Wait()
}
