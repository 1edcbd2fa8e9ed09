package client

import (
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Wa4h1h/go-tftp-client/pkg/types"
	"github.com/stretchr/testify/require"
)

const readWait = 2 * time.Second

// fakeServer is driven step by step from the test goroutine. Requests arrive
// on listen, everything else goes through transfer, like a real server
// answering from a fresh port.
type fakeServer struct {
	t        *testing.T
	listen   net.PacketConn
	transfer net.PacketConn
	client   net.Addr
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	listen, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	transfer, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = listen.Close()
		_ = transfer.Close()
	})

	return &fakeServer{t: t, listen: listen, transfer: transfer}
}

func (s *fakeServer) addr() string {
	return s.listen.LocalAddr().String()
}

func readPacket(conn net.PacketConn, wait time.Duration) ([]byte, net.Addr, error) {
	buf := make([]byte, types.DatagramSize)

	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, nil, err
	}

	n, addr, err := conn.ReadFrom(buf)
	if err != nil {
		return nil, nil, err
	}

	return buf[:n], addr, nil
}

func (s *fakeServer) mustRead(conn net.PacketConn) []byte {
	s.t.Helper()

	b, addr, err := readPacket(conn, readWait)
	require.NoError(s.t, err)

	s.client = addr

	return b
}

func (s *fakeServer) expectRequest(op types.OpCode, filename string) {
	s.t.Helper()

	req, err := types.DecodeRequest(s.mustRead(s.listen))
	require.NoError(s.t, err)
	require.Equal(s.t, op, req.Opcode)
	require.Equal(s.t, filename, req.Filename)
	require.Equal(s.t, types.ModeOctet, req.Mode)
}

func (s *fakeServer) expectAck(block uint16) {
	s.t.Helper()

	got, err := types.DecodeAck(s.mustRead(s.transfer))
	require.NoError(s.t, err)
	require.Equal(s.t, block, got)
}

func (s *fakeServer) expectData(block uint16) []byte {
	s.t.Helper()

	got, payload, err := types.DecodeData(s.mustRead(s.transfer))
	require.NoError(s.t, err)
	require.Equal(s.t, block, got)

	return append([]byte(nil), payload...)
}

func (s *fakeServer) expectError(code types.ErrCode) {
	s.t.Helper()

	got, _, err := types.DecodeError(s.mustRead(s.transfer))
	require.NoError(s.t, err)
	require.Equal(s.t, code, got)
}

// expectSilence asserts nothing arrives on conn within wait.
func (s *fakeServer) expectSilence(conn net.PacketConn, wait time.Duration) {
	s.t.Helper()

	b, _, err := readPacket(conn, wait)
	require.Truef(s.t, errors.Is(err, os.ErrDeadlineExceeded), "unexpected packet %v (err %v)", b, err)
}

// countRequests drains listen and returns how many packets were queued.
func (s *fakeServer) countRequests(op types.OpCode) int {
	s.t.Helper()

	count := 0

	for {
		b, _, err := readPacket(s.listen, 200*time.Millisecond)
		if err != nil {
			return count
		}

		req, err := types.DecodeRequest(b)
		require.NoError(s.t, err)
		require.Equal(s.t, op, req.Opcode)
		count++
	}
}

func (s *fakeServer) write(b []byte) {
	s.t.Helper()

	_, err := s.transfer.WriteTo(b, s.client)
	require.NoError(s.t, err)
}

func (s *fakeServer) sendData(block uint16, payload []byte) {
	s.t.Helper()

	b, err := types.EncodeData(block, payload)
	require.NoError(s.t, err)
	s.write(b)
}

func (s *fakeServer) sendAck(block uint16) {
	s.write(types.EncodeAck(block))
}

func (s *fakeServer) sendError(code types.ErrCode, msg string) {
	s.write(types.EncodeError(code, msg))
}

// memServer serves whole transfers from an in-memory file table, one
// transfer at a time.
type memServer struct {
	listen net.PacketConn
	files  map[string][]byte
	mu     sync.Mutex
	done   chan struct{}
}

func startMemServer(t *testing.T) *memServer {
	t.Helper()

	listen, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &memServer{listen: listen, files: make(map[string][]byte), done: make(chan struct{})}

	go s.serve()

	t.Cleanup(func() {
		_ = listen.Close()
		<-s.done
	})

	return s
}

func (s *memServer) addr() string {
	return s.listen.LocalAddr().String()
}

func (s *memServer) file(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.files[name]

	return b, ok
}

func (s *memServer) store(name string, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[name] = b
}

func (s *memServer) serve() {
	defer close(s.done)

	buf := make([]byte, types.DatagramSize)

	for {
		n, addr, err := s.listen.ReadFrom(buf)
		if err != nil {
			return
		}

		req, err := types.DecodeRequest(buf[:n])
		if err != nil {
			continue
		}

		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			return
		}

		switch req.Opcode {
		case types.OpCodeRRQ:
			s.send(conn, addr, req.Filename)
		case types.OpCodeWRQ:
			s.receive(conn, addr, req.Filename)
		}

		_ = conn.Close()
	}
}

func (s *memServer) send(conn net.PacketConn, addr net.Addr, filename string) {
	data, ok := s.file(filename)
	if !ok {
		_, _ = conn.WriteTo(types.EncodeError(types.ErrFileNotFound, filename), addr)

		return
	}

	block := uint16(1)

	for off := 0; ; off += types.MaxPayloadSize {
		end := min(off+types.MaxPayloadSize, len(data))

		pkt, err := types.EncodeData(block, data[off:end])
		if err != nil {
			return
		}

		acked := false

		for tries := 5; tries > 0 && !acked; tries-- {
			if _, err := conn.WriteTo(pkt, addr); err != nil {
				return
			}

			b, _, err := readPacket(conn, time.Second)
			if err != nil {
				continue
			}

			if ack, err := types.DecodeAck(b); err == nil && ack == block {
				acked = true
			}
		}

		if !acked || end-off < types.MaxPayloadSize {
			return
		}

		block++
	}
}

func (s *memServer) receive(conn net.PacketConn, addr net.Addr, filename string) {
	if _, err := conn.WriteTo(types.EncodeAck(0), addr); err != nil {
		return
	}

	out := []byte{}
	expected := uint16(1)

	for {
		b, _, err := readPacket(conn, time.Second)
		if err != nil {
			return
		}

		block, payload, err := types.DecodeData(b)
		if err != nil {
			return
		}

		last := false

		if block == expected {
			out = append(out, payload...)
			expected++

			if len(payload) < types.MaxPayloadSize {
				s.store(filename, out)
				last = true
			}
		}

		if _, err := conn.WriteTo(types.EncodeAck(block), addr); err != nil || last {
			return
		}
	}
}
