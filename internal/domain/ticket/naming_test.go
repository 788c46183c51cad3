package ticket

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "mario", want: "mario"},
		{name: "upper and spaces", input: "Mario  Rossi", want: "mario_rossi"},
		{name: "accents folded", input: "Renée Niccolò", want: "renee_niccolo"},
		{name: "symbols collapse", input: "x.x!!x", want: "x_x_x"},
		{name: "trim separators", input: "__-mario-__", want: "mario"},
		{name: "only symbols", input: "★★★", want: "utente"},
		{name: "empty", input: "", want: "utente"},
		{name: "keeps dash", input: "a-b", want: "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeUsername(tt.input))
		})
	}
}

func TestSanitizeUsername_Capped(t *testing.T) {
	got := SanitizeUsername(strings.Repeat("a", 200))
	assert.Len(t, got, maxUsernameLength)
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "📄・ticket-mario_rossi", ChannelName(vo.CategoryInformational, "Mario Rossi"))
	assert.Equal(t, "🔫・ticket-utente", ChannelName(vo.CategoryArmedBranch, "★"))
	assert.Equal(t, "ticket-mario", ChannelName(vo.CategoryUnknown, "mario"))
	assert.Equal(t, "ticket-42", FallbackChannelName("42"))

	// Same user, same category: deterministic.
	assert.Equal(t, ChannelName(vo.CategoryGeneral, "Zoë"), ChannelName(vo.CategoryGeneral, "Zoë"))
}

func TestIsTicketChannelName(t *testing.T) {
	assert.True(t, IsTicketChannelName("📄・ticket-mario"))
	assert.True(t, IsTicketChannelName("ticket-42"))
	assert.False(t, IsTicketChannelName("generale"))
	assert.False(t, IsTicketChannelName("tickets"))
}
