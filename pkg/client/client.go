package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Wa4h1h/go-tftp-client/pkg/types"
	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
	"github.com/docker/go-units"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Connector interface {
	Connect(addr string) error
	Get(ctx context.Context, filename string) error
	Put(ctx context.Context, filename string) error
	SetTimeout(timeout time.Duration)
	SetNumTries(numTries uint)
	SetTrace() bool
	Status() string
}

// ProgressFunc is called with the payload size of every acknowledged block.
type ProgressFunc func(n int)

type Client struct {
	server   *net.UDPAddr
	l        *zap.SugaredLogger
	progress ProgressFunc
	mode     types.Mode
	timeout  time.Duration
	numTries uint
	trace    bool
}

func NewClient(l *zap.SugaredLogger) *Client {
	return &Client{
		l:        l,
		mode:     types.ModeOctet,
		timeout:  time.Duration(types.DefaultClientTimeout) * time.Second,
		numTries: types.DefaultNumTries,
		progress: func(int) {},
	}
}

// Connect only resolves addr: UDP has no handshake and every transfer
// opens its own socket.
func (c *Client) Connect(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(types.DefaultPort))
	}

	server, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("error while resolving %s: %w", addr, err)
	}

	c.server = server

	return nil
}

func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func (c *Client) SetNumTries(numTries uint) {
	c.numTries = numTries
}

// SetTrace toggles per-block logging and returns the new state.
func (c *Client) SetTrace() bool {
	c.trace = !c.trace

	return c.trace
}

func (c *Client) SetProgress(progress ProgressFunc) {
	if progress == nil {
		progress = func(int) {}
	}

	c.progress = progress
}

func (c *Client) Status() string {
	server := "not connected"
	if c.server != nil {
		server = c.server.String()
	}

	return fmt.Sprintf("server: %s\nmode: %s\ntimeout: %s\ntries: %d\ntrace: %t",
		server, c.mode, c.timeout, c.numTries, c.trace)
}

// Get downloads filename into a local file of the same name. The local file
// is created or truncated; on failure it keeps the bytes received so far.
func (c *Client) Get(ctx context.Context, filename string) (err error) {
	if c.server == nil {
		return utils.ErrNotConnected
	}

	f, errOpen := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if errOpen != nil {
		return fmt.Errorf("error while opening %s: %w: %w", filename, utils.ErrLocalIO, errOpen)
	}

	defer func() {
		err = multierr.Append(err, closeFile(f))
	}()

	_, err = c.Receive(ctx, filename, f)

	return err
}

// Put uploads the local file filename under the same name.
func (c *Client) Put(ctx context.Context, filename string) (err error) {
	if c.server == nil {
		return utils.ErrNotConnected
	}

	f, errOpen := os.Open(filename)
	if errOpen != nil {
		return fmt.Errorf("error while opening %s: %w: %w", filename, utils.ErrLocalIO, errOpen)
	}

	defer func() {
		err = multierr.Append(err, closeFile(f))
	}()

	_, err = c.Send(ctx, filename, f)

	return err
}

// Receive downloads filename from the server into w and returns the number
// of bytes written.
func (c *Client) Receive(ctx context.Context, filename string, w io.Writer) (int64, error) {
	if c.server == nil {
		return 0, utils.ErrNotConnected
	}

	s, err := newSession(c.server, c.l, c.timeout, c.numTries, c.trace)
	if err != nil {
		return 0, err
	}

	defer c.closeSession(s)

	start := time.Now()

	n, err := s.download(ctx, types.EncodeRequest(types.OpCodeRRQ, filename, c.mode), w, c.progress)
	if err != nil {
		c.l.Errorf("get %s failed after %s: %s", filename, units.HumanSize(float64(n)), err.Error())

		return n, err
	}

	c.l.Infof("received %s (%s) in %s", filename, units.HumanSize(float64(n)), time.Since(start).Round(time.Millisecond))

	return n, nil
}

// Send uploads the content of r, starting at its current offset, as filename
// and returns the number of bytes acknowledged by the server.
func (c *Client) Send(ctx context.Context, filename string, r io.ReadSeeker) (int64, error) {
	if c.server == nil {
		return 0, utils.ErrNotConnected
	}

	s, err := newSession(c.server, c.l, c.timeout, c.numTries, c.trace)
	if err != nil {
		return 0, err
	}

	defer c.closeSession(s)

	start := time.Now()

	n, err := s.upload(ctx, types.EncodeRequest(types.OpCodeWRQ, filename, c.mode), r, c.progress)
	if err != nil {
		c.l.Errorf("put %s failed after %s: %s", filename, units.HumanSize(float64(n)), err.Error())

		return n, err
	}

	c.l.Infof("sent %s (%s) in %s", filename, units.HumanSize(float64(n)), time.Since(start).Round(time.Millisecond))

	return n, nil
}

func (c *Client) closeSession(s *session) {
	if err := s.Close(); err != nil {
		c.l.Error(err.Error())
	}
}

func closeFile(f *os.File) error {
	if err := f.Close(); err != nil {
		return fmt.Errorf("error while closing file: %w: %w", utils.ErrLocalIO, err)
	}

	return nil
}
