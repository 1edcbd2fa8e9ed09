package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Env interface {
	uint | bool | string
}

// GetEnv returns the value of key parsed as T, or defaultVal parsed as T when
// key is unset or blank. Values are trimmed before parsing. A missing
// required key or an unparsable value is a configuration bug and panics.
func GetEnv[T Env](key string, defaultVal string, required bool) T {
	var retVal T

	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		if required {
			panic(fmt.Sprintf("env %s is required", key))
		}

		val = defaultVal
	}

	switch ptr := any(&retVal).(type) {
	case *uint:
		parsed, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			panic(fmt.Sprintf("error while parsing env %s=%q as uint: %s", key, val, err.Error()))
		}

		*ptr = uint(parsed)
	case *bool:
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			panic(fmt.Sprintf("error while parsing env %s=%q as bool: %s", key, val, err.Error()))
		}

		*ptr = parsed
	case *string:
		*ptr = val
	}

	return retVal
}
