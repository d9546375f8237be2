package testutil

import (
	"os"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) *log.Logger {
	logger := log.NewWithOptions(os.Stdout, log.Options{
		Prefix: "test",
		Level:  log.DebugLevel,
	})
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}
