package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "wellness dev (commit unknown, built unknown)", String())

	prev := Version
	Version = "1.2.0"
	defer func() { Version = prev }()
	assert.Contains(t, String(), "wellness 1.2.0 ")
}
