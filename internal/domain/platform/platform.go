// Package platform is the port to the chat platform that owns channels,
// messages and roles. The ticket lifecycle only talks to it through Platform.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a channel or message does not exist.
var ErrNotFound = errors.New("platform: not found")

// Permission is a bit set of channel permissions.
type Permission int64

const (
	PermViewChannel        Permission = 1 << 10
	PermSendMessages       Permission = 1 << 11
	PermReadMessageHistory Permission = 1 << 16

	// PermTicketMember is what an owner, staff or added member gets.
	PermTicketMember = PermViewChannel | PermSendMessages | PermReadMessageHistory
)

// OverwriteKind says whether an overwrite targets a role or a member.
type OverwriteKind int

const (
	OverwriteRole OverwriteKind = iota
	OverwriteMember
)

type Overwrite struct {
	ID    string
	Kind  OverwriteKind
	Allow Permission
	Deny  Permission
}

type Channel struct {
	ID       string
	GuildID  string
	Name     string
	Topic    string
	ParentID string
	Text     bool
}

type CreateChannelRequest struct {
	GuildID    string
	Name       string
	ParentID   string
	Topic      string
	Overwrites []Overwrite
	Reason     string
}

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
	ButtonLink
)

type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	URL      string
	Disabled bool
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title        string
	Description  string
	Color        int
	ThumbnailURL string
	ImageURL     string
	Fields       []EmbedField
	Footer       string
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MessageSend is an outgoing message. Only users listed in MentionUsers are
// pinged; role and everyone mentions are always suppressed.
type MessageSend struct {
	Content      string
	Embeds       []Embed
	Buttons      []Button
	Files        []File
	MentionUsers []string
}

type Attachment struct {
	Name string
	URL  string
}

type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Embeds      []Embed
	Attachments []Attachment
	// PinNotice marks the system message the platform posts after a pin.
	PinNotice bool
	Timestamp time.Time
}

// Platform is everything the bot needs from the chat platform.
type Platform interface {
	BotUserID() string
	GuildName(ctx context.Context, guildID string) (string, error)

	// GuildChannels fetches the guild's channels from the platform, bypassing
	// any local cache.
	GuildChannels(ctx context.Context, guildID string) ([]Channel, error)
	Channel(ctx context.Context, channelID string) (*Channel, error)
	CreateTextChannel(ctx context.Context, req CreateChannelRequest) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SetMemberOverwrite(ctx context.Context, channelID, userID string, allow Permission, reason string) error
	RemoveMemberOverwrite(ctx context.Context, channelID, userID, reason string) error

	SendMessage(ctx context.Context, channelID string, msg MessageSend) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg MessageSend) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	GetMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	// ChannelHistory returns every message of the channel, oldest first.
	ChannelHistory(ctx context.Context, channelID string) ([]Message, error)

	AssignRole(ctx context.Context, guildID, userID, roleID string) error
}
