// Package ticket models a support ticket: a platform text channel whose topic
// carries its metadata.
package ticket

import (
	"fmt"
	"time"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
)

// Ticket is a snapshot of one ticket channel and its lifecycle position.
type Ticket struct {
	channelID string
	guildID   string
	name      string
	topic     string
	parentID  string
	meta      Metadata
	state     vo.State
	closedAt  *time.Time
}

// NewTicket prepares a ticket that has not been created on the platform yet.
func NewTicket(guildID string, category vo.Category, ownerID, username string, now time.Time) (*Ticket, error) {
	if guildID == "" {
		return nil, fmt.Errorf("guild ID is required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if !category.IsOpenable() {
		return nil, fmt.Errorf("category %s cannot be opened", category)
	}

	topic := BuildTopic(category, ownerID, now)
	return &Ticket{
		guildID: guildID,
		name:    ChannelName(category, username),
		topic:   topic,
		meta:    ParseTopic(topic),
		state:   vo.StateNone,
	}, nil
}

// ReconstructTicket rebuilds an OPEN ticket from a channel fetched from the
// platform. Undecodable topics are accepted.
func ReconstructTicket(channelID, guildID, name, topic, parentID string) (*Ticket, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel ID is required")
	}
	if !IsTicketChannelName(name) {
		return nil, fmt.Errorf("channel %s is not a ticket", name)
	}
	return &Ticket{
		channelID: channelID,
		guildID:   guildID,
		name:      name,
		topic:     topic,
		parentID:  parentID,
		meta:      ParseTopic(topic),
		state:     vo.StateOpen,
	}, nil
}

func (t *Ticket) ChannelID() string { return t.channelID }
func (t *Ticket) GuildID() string { return t.guildID }
func (t *Ticket) Name() string { return t.name }
func (t *Ticket) Topic() string { return t.topic }
func (t *Ticket) ParentID() string { return t.parentID }
func (t *Ticket) Category() vo.Category { return t.meta.Category }
func (t *Ticket) OwnerID() string { return t.meta.OwnerID }
func (t *Ticket) OpenedAt() time.Time { return t.meta.OpenedAt }
func (t *Ticket) Subcategory() string { return t.meta.Subcategory }
func (t *Ticket) State() vo.State { return t.state }
func (t *Ticket) ClosedAt() *time.Time { return t.closedAt }

// OwnedBy reports whether userID opened the ticket.
func (t *Ticket) OwnedBy(userID string) bool {
	return userID != "" && t.meta.OwnerID == userID
}

// OwnerMention renders the owner for messages, "Sconosciuto" when unknown.
func (t *Ticket) OwnerMention() string {
	if t.meta.OwnerID == "" {
		return "Sconosciuto"
	}
	return "<@" + t.meta.OwnerID + ">"
}

// UseFallbackName switches to the name built from the owner id.
func (t *Ticket) UseFallbackName() {
	t.name = FallbackChannelName(t.meta.OwnerID)
}

// MarkCreated records the platform channel and moves NONE -> OPEN.
func (t *Ticket) MarkCreated(channelID, parentID string) error {
	if err := t.transition(vo.StateOpen); err != nil {
		return err
	}
	t.channelID = channelID
	t.parentID = parentID
	return nil
}

// BeginClose moves OPEN -> CLOSING.
func (t *Ticket) BeginClose(at time.Time) error {
	if err := t.transition(vo.StateClosing); err != nil {
		return err
	}
	t.closedAt = &at
	return nil
}

// MarkDeleted moves CLOSING -> DELETED.
func (t *Ticket) MarkDeleted() error {
	return t.transition(vo.StateDeleted)
}

// SetSubcategory annotates the topic.
func (t *Ticket) SetSubcategory(sub string) {
	t.topic = WithSubcategory(t.topic, sub)
	t.meta.Subcategory = ParseSubcategory(t.topic)
}

func (t *Ticket) transition(next vo.State) error {
	if !t.state.CanTransitionTo(next) {
		return fmt.Errorf("invalid ticket transition from %s to %s", t.state, next)
	}
	t.state = next
	return nil
}
