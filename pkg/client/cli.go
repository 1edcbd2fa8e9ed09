package client

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const prompt = "tftp> "

// Cli runs an interactive tftp> prompt on top of a Connector.
type Cli struct {
	l          *zap.SugaredLogger
	tftpClient Connector
	in         io.Reader
	out        io.Writer
}

func NewCli(l *zap.SugaredLogger, tftpClient Connector, in io.Reader, out io.Writer) *Cli {
	return &Cli{l: l, tftpClient: tftpClient, in: in, out: out}
}

// Read evaluates lines until quit, end of input or ctx cancellation. Command
// failures are printed and do not stop the prompt.
func (c *Cli) Read(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	evaluator := NewEvaluator(c.l, c.tftpClient, c.out)

	fmt.Fprint(c.out, prompt)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := evaluator.evaluate(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(c.out, "%s\n", err.Error())
		}

		if done {
			return nil
		}

		fmt.Fprint(c.out, prompt)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error while reading input: %w", err)
	}

	return nil
}
