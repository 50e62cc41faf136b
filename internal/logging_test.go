package internal

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitLoggingTo(t *testing.T) {
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	}()

	var buf bytes.Buffer
	InitLoggingTo(&buf)
	log.Printf("import %s ready", "feed")

	assert.Equal(t, log.LstdFlags|log.Lmicroseconds, log.Flags())
	assert.Contains(t, buf.String(), "import feed ready")
}
