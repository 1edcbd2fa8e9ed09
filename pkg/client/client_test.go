package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type result struct {
	err error
	n   int64
}

func newTestClient(t *testing.T, addr string, timeout time.Duration) *Client {
	t.Helper()

	c := NewClient(zaptest.NewLogger(t).Sugar())
	require.NoError(t, c.Connect(addr))
	c.SetTimeout(timeout)
	c.SetTrace()

	return c
}

// async runs a transfer while the test goroutine plays the server. The
// cleanup keeps the test alive until the transfer returned.
func async(t *testing.T, fn func() (int64, error)) <-chan result {
	t.Helper()

	ch := make(chan result, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)

		n, err := fn()
		ch <- result{n: n, err: err}
	}()

	t.Cleanup(func() { <-done })

	return ch
}

func wait(t *testing.T, ch <-chan result) result {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("transfer did not finish")
	}

	return result{}
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()

	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)

	return b
}

func requireSameBytes(t *testing.T, want, got []byte) {
	t.Helper()

	require.Truef(t, bytes.Equal(want, got), "content mismatch: want %d bytes, got %d bytes", len(want), len(got))
}

func TestClient_RoundTrip(t *testing.T) {
	srv := startMemServer(t)
	c := newTestClient(t, srv.addr(), 2*time.Second)

	var acknowledged int

	c.SetProgress(func(n int) { acknowledged += n })

	for _, size := range []int{0, 1, 100, 511, 512, 513, 1024, 1500, 4096, 10000} {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			content := randomBytes(t, size)
			src := fmt.Sprintf("src-%d.bin", size)
			dst := fmt.Sprintf("dst-%d.bin", size)

			srv.store(src, content)
			acknowledged = 0

			var buf bytes.Buffer

			n, err := c.Receive(context.Background(), src, &buf)
			require.NoError(t, err)
			require.Equal(t, int64(size), n)
			require.Equal(t, size, acknowledged)
			requireSameBytes(t, content, buf.Bytes())

			acknowledged = 0

			n, err = c.Send(context.Background(), dst, bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			require.Equal(t, int64(size), n)
			require.Equal(t, size, acknowledged)

			uploaded, ok := srv.file(dst)
			require.True(t, ok)
			requireSameBytes(t, content, uploaded)
		})
	}
}

func TestClient_GetPutFiles(t *testing.T) {
	srv := startMemServer(t)
	c := newTestClient(t, srv.addr(), 2*time.Second)
	dir := t.TempDir()

	content := randomBytes(t, 2000)
	remote := filepath.Join(dir, "test.bin")
	srv.store(remote, content)

	// an older, longer local copy must be replaced
	require.NoError(t, os.WriteFile(remote, bytes.Repeat([]byte{'x'}, 5000), 0o644))

	require.NoError(t, c.Get(context.Background(), remote))

	got, err := os.ReadFile(remote)
	require.NoError(t, err)
	requireSameBytes(t, content, got)

	srv.store(remote, nil)
	require.NoError(t, c.Put(context.Background(), remote))

	uploaded, ok := srv.file(remote)
	require.True(t, ok)
	requireSameBytes(t, content, uploaded)
}

func TestClient_GetMissingFile(t *testing.T) {
	srv := startMemServer(t)
	c := newTestClient(t, srv.addr(), 2*time.Second)

	var serverErr *ServerError

	_, err := c.Receive(context.Background(), "missing.bin", &bytes.Buffer{})
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, "File not found.", serverErr.Code.Message())
}

func TestClient_PutMissingLocalFile(t *testing.T) {
	c := newTestClient(t, "127.0.0.1:6969", time.Second)

	err := c.Put(context.Background(), filepath.Join(t.TempDir(), "absent.bin"))
	require.ErrorIs(t, err, utils.ErrLocalIO)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t).Sugar())

	require.ErrorIs(t, c.Get(context.Background(), "f"), utils.ErrNotConnected)
	require.ErrorIs(t, c.Put(context.Background(), "f"), utils.ErrNotConnected)

	_, err := c.Receive(context.Background(), "f", &bytes.Buffer{})
	require.ErrorIs(t, err, utils.ErrNotConnected)
}

func TestClient_Connect(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t).Sugar())

	require.NoError(t, c.Connect("127.0.0.1"))
	require.Equal(t, "127.0.0.1:69", c.server.String())

	require.NoError(t, c.Connect("127.0.0.1:6969"))
	require.Equal(t, "127.0.0.1:6969", c.server.String())

	require.Error(t, c.Connect("127.0.0.1:notaport"))
}

func TestClient_Settings(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t).Sugar())

	require.Contains(t, c.Status(), "server: not connected")
	require.Contains(t, c.Status(), "mode: octet")
	require.Contains(t, c.Status(), "timeout: 5s")
	require.Contains(t, c.Status(), "tries: 3")

	c.SetTimeout(2 * time.Second)
	c.SetNumTries(7)
	require.True(t, c.SetTrace())
	require.False(t, c.SetTrace())

	require.Contains(t, c.Status(), "timeout: 2s")
	require.Contains(t, c.Status(), "tries: 7")
	require.Contains(t, c.Status(), "trace: false")
}
