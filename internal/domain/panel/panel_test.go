package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	r := Record{GuildID: "1", ChannelID: "2", MessageID: "3"}
	assert.Equal(t, "panel:1:2", r.Key())

	g, c, ok := ParseKey(r.Key())
	assert.True(t, ok)
	assert.Equal(t, "1", g)
	assert.Equal(t, "2", c)

	for _, bad := range []string{"", "panel:", "panel:1", "panel::2", "open:1:2"} {
		_, _, ok := ParseKey(bad)
		assert.False(t, ok, bad)
	}
}
