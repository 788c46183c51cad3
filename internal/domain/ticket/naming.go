package ticket

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
)

// ChannelMarker is present in the name of every ticket channel.
const ChannelMarker = "ticket-"

// channelSeparator sits between the category emoji and the marker.
const channelSeparator = "・"

const (
	defaultUsername   = "utente"
	maxUsernameLength = 80
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^a-z0-9_-]`)
	underscoreRe = regexp.MustCompile(`_+`)
	lowerFolder  = cases.Lower(language.Italian)
)

// SanitizeUsername folds a display name into the channel-name alphabet
// [a-z0-9_-]. Accents are stripped rather than replaced, so "Renée" becomes
// "renee". An empty result becomes "utente".
func SanitizeUsername(username string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		username,
	)
	if err != nil {
		folded = username
	}
	s := lowerFolder.String(folded)
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = invalidRe.ReplaceAllString(s, "_")
	s = underscoreRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_-")
	if len(s) > maxUsernameLength {
		s = strings.Trim(s[:maxUsernameLength], "_-")
	}
	if s == "" {
		return defaultUsername
	}
	return s
}

// ChannelName is the preferred name of a new ticket channel.
func ChannelName(category vo.Category, username string) string {
	name := ChannelMarker + SanitizeUsername(username)
	if emoji := category.Emoji(); emoji != "" {
		return emoji + channelSeparator + name
	}
	return name
}

// FallbackChannelName is used when the platform rejects ChannelName.
func FallbackChannelName(userID string) string {
	return ChannelMarker + userID
}

// IsTicketChannelName reports whether a channel is managed as a ticket.
func IsTicketChannelName(name string) bool {
	return strings.Contains(name, ChannelMarker)
}
