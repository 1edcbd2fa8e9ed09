package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Wa4h1h/go-tftp-client/pkg/client"
	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
	"github.com/urfave/cli"
	"gopkg.in/cheggaaa/pb.v2"
)

var (
	logLevel = utils.GetEnv[string]("TFTP_LOG_LEVEL", "info", false)
	tftpPort = utils.GetEnv[uint]("TFTP_PORT", "69", false)
	timeout  = utils.GetEnv[uint]("TFTP_TIMEOUT", "5", false)
	numTries = utils.GetEnv[uint]("TFTP_NUM_TRIES", "3", false)
	trace    = utils.GetEnv[bool]("TFTP_TRACE", "false", false)
)

func main() {
	if err := newApp().Run(hoistFlags(os.Args)); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "client"
	app.Usage = "transfer a file to or from a TFTP server"
	app.ArgsUsage = "<host> [get|put <filename>]"
	app.Flags = []cli.Flag{
		cli.UintFlag{
			Name:  "port, p",
			Value: tftpPort,
			Usage: "server port",
		},
		cli.UintFlag{
			Name:  "timeout, t",
			Value: timeout,
			Usage: "seconds to wait for each reply",
		},
		cli.UintFlag{
			Name:  "retries, r",
			Value: numTries,
			Usage: "consecutive timeouts before giving up",
		},
		cli.BoolFlag{
			Name:  "trace",
			Usage: "log every block (default from TFTP_TRACE)",
		},
		cli.BoolFlag{
			Name:  "progress",
			Usage: "show a progress bar",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: logLevel,
			Usage: "debug, info, warn or error",
		},
	}
	app.Action = run

	return app
}

func run(c *cli.Context) error {
	if c.NArg() != 1 && c.NArg() != 3 {
		return cli.NewExitError(fmt.Sprintf("error: expected %s %s", c.App.Name, c.App.ArgsUsage), 1)
	}

	if c.Uint("timeout") == 0 || c.Uint("retries") == 0 {
		return cli.NewExitError("error: timeout and retries must be positive", 1)
	}

	l := utils.NewLogger(c.String("log-level")).Sugar()

	defer func() {
		_ = l.Sync()
	}()

	tftpClient := client.NewClient(l)
	tftpClient.SetTimeout(time.Duration(c.Uint("timeout")) * time.Second)
	tftpClient.SetNumTries(c.Uint("retries"))

	if c.Bool("trace") || trace {
		tftpClient.SetTrace()
	}

	addr := net.JoinHostPort(c.Args().Get(0), strconv.FormatUint(uint64(c.Uint("port")), 10))
	if err := tftpClient.Connect(addr); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.NArg() == 1 {
		if err := client.NewCli(l, tftpClient, os.Stdin, os.Stdout).Read(ctx); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		return nil
	}

	filename := c.Args().Get(2)

	var err error

	switch op := strings.ToLower(c.Args().Get(1)); op {
	case "get":
		if c.Bool("progress") {
			defer withProgress(tftpClient, 0)()
		}

		err = tftpClient.Get(ctx, filename)
	case "put":
		if c.Bool("progress") {
			defer withProgress(tftpClient, fileSize(filename))()
		}

		err = tftpClient.Put(ctx, filename)
	default:
		return cli.NewExitError(fmt.Sprintf("error: unknown operation %q, use get or put", op), 1)
	}

	if err != nil {
		// already logged by the client
		return cli.NewExitError("", 1)
	}

	return nil
}

func withProgress(tftpClient *client.Client, total int) func() {
	bar := pb.StartNew(total)
	tftpClient.SetProgress(func(n int) {
		bar.Add(n)
	})

	return func() {
		bar.Finish()
	}
}

func fileSize(filename string) int {
	stats, err := os.Stat(filename)
	if err != nil {
		return 0
	}

	return int(stats.Size())
}
