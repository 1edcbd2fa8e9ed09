package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	getRegex     = "^get\\s+([\\S\\s]+)$"
	putRegex     = "^put\\s+([\\S\\s]+)$"
	timeoutRegex = "^timeout\\s+(\\d+)$"
	retriesRegex = "^retries\\s+(\\d+)$"
	connectRegex = "^connect\\s+(\\S+)(?:\\s+(\\d+))?$"
	traceRegex   = "^trace$"
	statusRegex  = "^status$"
	quitRegex    = "^quit$"
	helpRegex    = "^help$"
)

const help = `Commands:
	connect <host> [port]
	get <file>
	put <file>
	timeout <seconds>
	retries <count>
	trace
	status
	quit`

type Evaluator struct {
	l             *zap.SugaredLogger
	client        Connector
	out           io.Writer
	regexPatterns map[string]*regexp.Regexp
}

func NewEvaluator(l *zap.SugaredLogger, client Connector, out io.Writer) *Evaluator {
	e := &Evaluator{
		l:      l,
		client: client,
		out:    out,
	}

	e.regexPatterns = make(map[string]*regexp.Regexp)

	e.regexPatterns["get"] = regexp.MustCompile(getRegex)
	e.regexPatterns["put"] = regexp.MustCompile(putRegex)
	e.regexPatterns["timeout"] = regexp.MustCompile(timeoutRegex)
	e.regexPatterns["retries"] = regexp.MustCompile(retriesRegex)
	e.regexPatterns["connect"] = regexp.MustCompile(connectRegex)
	e.regexPatterns["trace"] = regexp.MustCompile(traceRegex)
	e.regexPatterns["status"] = regexp.MustCompile(statusRegex)
	e.regexPatterns["quit"] = regexp.MustCompile(quitRegex)
	e.regexPatterns["help"] = regexp.MustCompile(helpRegex)

	return e
}

// evaluate runs one command line and reports whether the prompt should stop.
func (e *Evaluator) evaluate(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)

	if line == "" {
		return false, nil
	}

	if matches := e.regexPatterns["get"].FindStringSubmatch(line); len(matches) == 2 {
		return false, e.client.Get(ctx, matches[1])
	}

	if matches := e.regexPatterns["put"].FindStringSubmatch(line); len(matches) == 2 {
		return false, e.client.Put(ctx, matches[1])
	}

	if matches := e.regexPatterns["timeout"].FindStringSubmatch(line); len(matches) == 2 {
		n, err := strconv.ParseUint(matches[1], 10, 32)
		if err != nil || n == 0 {
			return false, fmt.Errorf("timeout value can not be parsed: %s", matches[1])
		}

		e.client.SetTimeout(time.Duration(n) * time.Second)

		return false, nil
	}

	if matches := e.regexPatterns["retries"].FindStringSubmatch(line); len(matches) == 2 {
		n, err := strconv.ParseUint(matches[1], 10, 32)
		if err != nil || n == 0 {
			return false, fmt.Errorf("retries value can not be parsed: %s", matches[1])
		}

		e.client.SetNumTries(uint(n))

		return false, nil
	}

	if matches := e.regexPatterns["connect"].FindStringSubmatch(line); len(matches) == 3 {
		addr := matches[1]
		if matches[2] != "" {
			addr = net.JoinHostPort(matches[1], matches[2])
		}

		return false, e.client.Connect(addr)
	}

	if e.regexPatterns["trace"].MatchString(line) {
		fmt.Fprintf(e.out, "trace: %t\n", e.client.SetTrace())

		return false, nil
	}

	if e.regexPatterns["status"].MatchString(line) {
		fmt.Fprintln(e.out, e.client.Status())

		return false, nil
	}

	if e.regexPatterns["help"].MatchString(line) {
		fmt.Fprintln(e.out, help)

		return false, nil
	}

	if e.regexPatterns["quit"].MatchString(line) {
		return true, nil
	}

	return false, fmt.Errorf("unknown command arguments: %s", line)
}
