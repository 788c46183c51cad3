package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
)

// The channel topic is the only metadata a ticket carries. Grammar:
//
//	**Categoria:** <label> | **Utente:** <@<userId>> | **Aperto:** <t:<unix>:f>[ | **Sottocategoria:** <text>]
//
// Fields are separated by " | ". Decoding never fails: a missing field
// decodes to its zero value.
const (
	fieldCategory    = "**Categoria:**"
	fieldOwner       = "**Utente:**"
	fieldOpened      = "**Aperto:**"
	fieldSubcategory = "**Sottocategoria:**"
	fieldSeparator   = " | "
)

// MaxTopicLength is the platform limit on channel topics, in characters.
const MaxTopicLength = 1024

var (
	categoryRe    = regexp.MustCompile(`\*\*Categoria:\*\*\s*([^|]+?)\s*(?:\||$)`)
	ownerFieldRe  = regexp.MustCompile(`\*\*Utente:\*\*\s*<@!?(\d+)>`)
	anyMentionRe  = regexp.MustCompile(`<@!?(\d+)>`)
	openedRe      = regexp.MustCompile(`\*\*Aperto:\*\*\s*<t:(\d+)(?::[tTdDfFR])?>`)
	subcategoryRe = regexp.MustCompile(`\*\*Sottocategoria:\*\*\s*([^|]+?)\s*(?:\||$)`)
)

// Metadata is the decoded form of a topic.
type Metadata struct {
	Category    vo.Category
	OwnerID     string
	OpenedAt    time.Time
	Subcategory string
}

// BuildTopic encodes a new ticket's metadata.
func BuildTopic(category vo.Category, ownerID string, openedAt time.Time) string {
	return strings.Join([]string{
		fieldCategory + " " + category.Label(),
		fieldOwner + " <@" + ownerID + ">",
		fmt.Sprintf("%s <t:%d:f>", fieldOpened, openedAt.Unix()),
	}, fieldSeparator)
}

// WithSubcategory appends or replaces the sub-category annotation. It is the
// only in-place update a topic receives.
func WithSubcategory(topic, subcategory string) string {
	subcategory = strings.TrimSpace(strings.ReplaceAll(subcategory, "|", "/"))
	if loc := subcategoryRe.FindStringIndex(topic); loc != nil {
		start := loc[0]
		if i := strings.LastIndex(topic[:start], fieldSeparator); i >= 0 && i+len(fieldSeparator) == start {
			start = i
		}
		topic = strings.TrimRight(topic[:start], " |")
	}
	if subcategory == "" {
		return topic
	}
	out := topic + fieldSeparator + fieldSubcategory + " " + subcategory
	if utf8.RuneCountInString(out) > MaxTopicLength {
		out = string([]rune(out)[:MaxTopicLength])
	}
	return out
}

// ParseTopic decodes every field of topic.
func ParseTopic(topic string) Metadata {
	return Metadata{
		Category:    ParseCategory(topic),
		OwnerID:     ParseOwner(topic),
		OpenedAt:    ParseOpenedAt(topic),
		Subcategory: ParseSubcategory(topic),
	}
}

// ParseCategory returns vo.CategoryUnknown when the topic has no recognised
// category label.
func ParseCategory(topic string) vo.Category {
	m := categoryRe.FindStringSubmatch(topic)
	if m == nil {
		return vo.CategoryUnknown
	}
	return vo.CategoryFromLabel(m[1])
}

// ParseOwner returns the owner user id, or "" when unknown. Topics written
// before the field labels existed are matched on their first user mention.
func ParseOwner(topic string) string {
	if m := ownerFieldRe.FindStringSubmatch(topic); m != nil {
		return m[1]
	}
	if m := anyMentionRe.FindStringSubmatch(topic); m != nil {
		return m[1]
	}
	return ""
}

// ParseOpenedAt returns the zero time when the topic has no open timestamp.
func ParseOpenedAt(topic string) time.Time {
	m := openedRe.FindStringSubmatch(topic)
	if m == nil {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func ParseSubcategory(topic string) string {
	m := subcategoryRe.FindStringSubmatch(topic)
	if m == nil {
		return ""
	}
	return m[1]
}
