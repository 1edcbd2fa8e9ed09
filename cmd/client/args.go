package main

import "strings"

// flags that consume the following argument as their value
var valueFlags = map[string]bool{
	"p":         true,
	"port":      true,
	"t":         true,
	"timeout":   true,
	"r":         true,
	"retries":   true,
	"log-level": true,
}

// hoistFlags moves flags placed after the positional arguments in front of
// them, so `client host get file -p 6969` parses like `client -p 6969 host get file`.
func hoistFlags(args []string) []string {
	if len(args) < 2 {
		return args
	}

	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))

	for i := 1; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)

			break
		}

		if len(arg) < 2 || !strings.HasPrefix(arg, "-") {
			positionals = append(positionals, arg)

			continue
		}

		flags = append(flags, arg)

		name := strings.TrimLeft(arg, "-")
		if valueFlags[name] && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}

	hoisted := make([]string, 0, len(args))
	hoisted = append(hoisted, args[0])
	hoisted = append(hoisted, flags...)

	return append(hoisted, positionals...)
}
