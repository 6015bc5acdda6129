package trace_sender

import (
	"encoding/binary"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceSenderShipsLengthPrefixedRecords(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "trace.sock")
	pc, err := net.ListenPacket("unixgram", sock)
	require.NoError(t, err)
	defer pc.Close()

	in := make(chan *Trace, 16)
	s := NewTraceSender(sock, in, nil)
	s.Start()

	in <- &Trace{
		ServiceType: "http",
		Service:     "svc-a",
		TraceId:     "20260830120000001234abcd1234abcd",
		SampleRate:  10,
		Events: []*Event{
			{Kind: SpanKindServer, SpanId: "a", Name: "request", Status: 0},
		},
	}
	s.Flush()

	buf := make([]byte, 64<<10)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	require.Greater(t, n, 4)

	recordLen := binary.LittleEndian.Uint32(buf[0:4])
	require.Equal(t, int(recordLen), n-4)

	var got Trace
	require.NoError(t, got.Unmarshal(buf[4:n]))
	assert.Equal(t, "svc-a", got.Service)
	assert.Equal(t, "20260830120000001234abcd1234abcd", got.TraceId)
	assert.Equal(t, 10, got.SampleRate)
	require.Len(t, got.Events, 1)
	assert.Equal(t, SpanKindServer, got.Events[0].Kind)

	close(in)
	s.WaitStop()
}

func TestTraceSenderFlushesOnClose(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "trace.sock")
	pc, err := net.ListenPacket("unixgram", sock)
	require.NoError(t, err)
	defer pc.Close()

	in := make(chan *Trace, 16)
	s := NewTraceSender(sock, in, nil)
	s.Start()

	in <- &Trace{Service: "svc-b", TraceId: "t", SampleRate: 1}
	close(in)
	s.WaitStop()

	buf := make([]byte, 64<<10)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Greater(t, n, 4)
}
