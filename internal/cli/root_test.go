package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExit_ClosesActiveContext(t *testing.T) {
	var code, closed int
	osExit = func(c int) { code = c }
	t.Cleanup(func() { osExit = defaultExit; active = nil })

	c := &cmdContext{closeLogs: func() { closed++ }}
	active = c

	exit(1)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, closed, "log files closed before exiting")
	assert.Nil(t, active)

	// The command's deferred Close runs after exit in tests; it must not close twice.
	c.Close()
	assert.Equal(t, 1, closed)
}
