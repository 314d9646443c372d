package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "ODYSSEY_GL_TEST_MODE"

var (
	testModeOnce sync.Once
	testMode     bool
)

// InTestMode reports whether the binaries should skip binding ports and
// connecting to Postgres or Redis. It reads ODYSSEY_GL_TEST_MODE once.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode, _ = strconv.ParseBool(os.Getenv(testModeEnv))
	})
	return testMode
}
