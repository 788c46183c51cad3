// Package trigger models inbound platform events as a closed set of variants.
// The platform adapter decodes raw events once into these types; handlers
// switch on the concrete type.
package trigger

import (
	"context"
	"time"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
)

// Responder answers the actor that produced a trigger. Replies are private to
// the actor.
type Responder interface {
	// Defer acknowledges the trigger privately; a later Reply edits it.
	Defer(ctx context.Context) error
	Reply(ctx context.Context, content string) error
	// Dismiss removes a deferred acknowledgement without leaving a message.
	Dismiss(ctx context.Context) error
	ShowCloseModal(ctx context.Context, channelID string) error
	ReplyFile(ctx context.Context, content string, file platform.File) error
}

// Meta is carried by every trigger.
type Meta struct {
	// EventID is the platform's identifier for the delivery, used to drop
	// redeliveries.
	EventID    string
	GuildID    string
	ChannelID  string
	Actor      permission.Actor
	Responder  Responder
	ReceivedAt time.Time
}

// Trigger is implemented only by the variants below.
type Trigger interface {
	Metadata() Meta
	isTrigger()
}

func (m Meta) Metadata() Meta { return m }
func (Meta) isTrigger() {}

// OpenRequest asks for a new ticket of Category.
type OpenRequest struct {
	Meta
	Category vo.Category
}

// CloseIntent is the close button; it leads to the reason form.
type CloseIntent struct {
	Meta
}

// CloseRequest is the submitted reason form.
type CloseRequest struct {
	Meta
	TargetChannelID string
	Reason          string
}

// PanelSource distinguishes the slash command from the text fallback.
type PanelSource int

const (
	PanelFromCommand PanelSource = iota
	PanelFromText
)

type PanelShowRequest struct {
	Meta
	Source PanelSource
}

type DownloadRequest struct {
	Meta
	Token string
}

type MemberJoined struct {
	Meta
	UserID   string
	Username string
}

type MemberLeft struct {
	Meta
	UserID   string
	Username string
}

type MemberAddRequest struct {
	Meta
	TargetUserID string
}

type MemberRemoveRequest struct {
	Meta
	TargetUserID string
}

// NopResponder is used for triggers nobody waits on, such as member events.
type NopResponder struct{}

func (NopResponder) Defer(context.Context) error { return nil }
func (NopResponder) Reply(context.Context, string) error { return nil }
func (NopResponder) Dismiss(context.Context) error { return nil }
func (NopResponder) ShowCloseModal(context.Context, string) error { return nil }
func (NopResponder) ReplyFile(context.Context, string, platform.File) error { return nil }
