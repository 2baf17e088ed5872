// Package hostlog wraps charmbracelet/log so the arbiter, acceptor, and
// session packages all write structured, leveled log lines in the same
// format instead of reaching for the standard library's log package
// directly.
package hostlog

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds a logger with the given prefix (e.g. "arbiter", "session"),
// writing to os.Stderr with report timestamps enabled.
func New(prefix string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	return l
}
