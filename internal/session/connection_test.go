package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/protocol"
)

func pipeSession(t *testing.T, bufSize int) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	sess := NewSession(server, bufSize)
	return sess, client
}

func TestSession_SendEventDeliversFramedPayload(t *testing.T) {
	sess, client := pipeSession(t, 4)
	go sess.WritePump()
	defer sess.Close()

	opcode, payload := protocol.EncodeUserCharIndex(42)
	require.NoError(t, sess.SendEvent(opcode, payload))

	gotOpcode, gotPayload, err := protocol.ReadFrame(client, nil)
	require.NoError(t, err)
	require.Equal(t, opcode, gotOpcode)
	require.Equal(t, payload, gotPayload)
}

func TestSession_SendClosesOnFullQueue(t *testing.T) {
	sess, client := pipeSession(t, 1)
	defer client.Close()
	// No WritePump running: the queue fills and the next Send must close
	// the session rather than block the caller.
	require.NoError(t, sess.Send([]byte{1}))
	err := sess.Send([]byte{2})
	require.Error(t, err)

	select {
	case <-sess.closeCh:
	case <-time.After(time.Second):
		t.Fatal("expected session to be closed after a full outbound queue")
	}
}

func TestSession_PlayerBinding(t *testing.T) {
	sess, client := pipeSession(t, 4)
	defer client.Close()
	defer sess.Close()

	require.False(t, sess.Authenticated())
	require.Nil(t, sess.Player())

	p := &model.Player{UserID: 7, CharIndex: 3, Name: "alice"}
	sess.SetPlayer(p)

	require.True(t, sess.Authenticated())
	require.Equal(t, uint32(3), sess.CharIndex())
	require.Same(t, p, sess.Player())
}

func TestSession_CloseAsyncIsIdempotent(t *testing.T) {
	sess, client := pipeSession(t, 4)
	defer client.Close()

	sess.CloseAsync()
	require.NotPanics(t, func() { sess.CloseAsync() })
}
