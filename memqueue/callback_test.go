package memqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fabriq/types"
)

func TestPack(t *testing.T) {
	t.Run("completes when every message is acknowledged", func(t *testing.T) {
		msgs := []types.QueueMsg{msg("a"), msg("b"), msg("c")}
		pack := NewPack(msgs, nil)

		for _, m := range msgs[:2] {
			pack.Callback(m.MsgKey()).OnSuccess()
		}
		require.False(t, pack.Await(10*time.Millisecond), "one message still pending")

		pack.Callback(msgs[2].MsgKey()).OnSuccess()
		require.True(t, pack.Await(time.Second))
	})

	t.Run("failures release their message too", func(t *testing.T) {
		msgs := []types.QueueMsg{msg("ok"), msg("broken")}
		pack := NewPack(msgs, nil)

		pack.Callback(msgs[0].MsgKey()).OnSuccess()
		pack.Callback(msgs[1].MsgKey()).OnFailure(errors.New("processing failed"))

		require.True(t, pack.Await(time.Second))
	})

	t.Run("duplicate acknowledgements are idempotent", func(t *testing.T) {
		msgs := []types.QueueMsg{msg("a"), msg("b")}
		pack := NewPack(msgs, nil)

		cb := pack.Callback(msgs[0].MsgKey())
		cb.OnSuccess()
		cb.OnSuccess()
		require.False(t, pack.Await(10*time.Millisecond))

		pack.Callback(msgs[1].MsgKey()).OnSuccess()
		require.True(t, pack.Await(time.Second))
	})

	t.Run("an empty batch is complete immediately", func(t *testing.T) {
		pack := NewPack(nil, nil)
		require.True(t, pack.Await(time.Second))
	})
}
