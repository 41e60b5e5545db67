package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", Email("john.doe@example.com"))
	assert.Equal(t, "***@example.com", Email("al@example.com"))
	assert.Equal(t, "[email]", Email("not-an-address"))
}

func TestTarget(t *testing.T) {
	assert.Equal(t, "example.com", Target("example.com", "domain"))
	assert.Equal(t, "us***@example.com", Target("user@example.com", "email"))
}

func TestScrub(t *testing.T) {
	msg := "email: send to soc@corp.example: 550 mailbox unavailable; cc ops.team@corp.example"
	assert.Equal(t, "email: send to so***@corp.example: 550 mailbox unavailable; cc op***@corp.example", Scrub(msg))
	assert.Equal(t, "no addresses here", Scrub("no addresses here"))
}
