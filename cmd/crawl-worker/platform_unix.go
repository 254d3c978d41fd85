//go:build unix

package main

import (
	"os"
	"syscall"
)

// shutdownSignals close the engine before exit. SIGHUP covers a parent that
// goes away without closing stdin.
var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
