package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/trigger"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
)

// Decoder turns gateway events into triggers. Events the bot does not act
// on decode to (nil, false).
type Decoder struct {
	interactions interactionAPI
	messages     messageAPI
	now          func() time.Time
}

func NewDecoder(interactions interactionAPI, messages messageAPI) *Decoder {
	return &Decoder{
		interactions: interactions,
		messages:     messages,
		now:          biztime.NowUTC,
	}
}

func (d *Decoder) Interaction(i *discordgo.InteractionCreate) (trigger.Trigger, bool) {
	if i == nil || i.Interaction == nil || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return nil, false
	}
	meta := trigger.Meta{
		EventID:    i.ID,
		GuildID:    i.GuildID,
		ChannelID:  i.ChannelID,
		Actor:      actorFromMember(i.Member),
		Responder:  newInteractionResponder(d.interactions, i.Interaction),
		ReceivedAt: d.now(),
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return decodeCommand(meta, i.ApplicationCommandData())
	case discordgo.InteractionMessageComponent:
		return decodeComponent(meta, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		return decodeModal(meta, i.ModalSubmitData())
	}
	return nil, false
}

func decodeCommand(meta trigger.Meta, data discordgo.ApplicationCommandInteractionData) (trigger.Trigger, bool) {
	switch data.Name {
	case trigger.CommandPanel:
		return trigger.PanelShowRequest{Meta: meta, Source: trigger.PanelFromCommand}, true
	case trigger.CommandAddUser:
		target, ok := userOption(data.Options, trigger.CommandUserOption)
		if !ok {
			return nil, false
		}
		return trigger.MemberAddRequest{Meta: meta, TargetUserID: target}, true
	case trigger.CommandRemoveUser:
		target, ok := userOption(data.Options, trigger.CommandUserOption)
		if !ok {
			return nil, false
		}
		return trigger.MemberRemoveRequest{Meta: meta, TargetUserID: target}, true
	}
	return nil, false
}

func decodeComponent(meta trigger.Meta, customID string) (trigger.Trigger, bool) {
	if category, ok := trigger.CategoryForButton(customID); ok {
		return trigger.OpenRequest{Meta: meta, Category: category}, true
	}
	if customID == trigger.CustomIDClose {
		return trigger.CloseIntent{Meta: meta}, true
	}
	if token, ok := trigger.ParseDownloadID(customID); ok {
		return trigger.DownloadRequest{Meta: meta, Token: token}, true
	}
	return nil, false
}

func decodeModal(meta trigger.Meta, data discordgo.ModalSubmitInteractionData) (trigger.Trigger, bool) {
	target, ok := trigger.ParseCloseModalID(data.CustomID)
	if !ok {
		return nil, false
	}
	return trigger.CloseRequest{
		Meta:            meta,
		TargetChannelID: target,
		Reason:          textInputValue(data.Components, trigger.CloseReasonField),
	}, true
}

// Message decodes the text fallback for the panel command.
func (d *Decoder) Message(m *discordgo.MessageCreate) (trigger.Trigger, bool) {
	if m == nil || m.Message == nil || m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return nil, false
	}
	if m.Content != trigger.PanelTextCommand {
		return nil, false
	}
	actor := permission.Actor{UserID: m.Author.ID, Username: m.Author.Username}
	if m.Member != nil {
		actor.RoleIDs = m.Member.Roles
	}
	return trigger.PanelShowRequest{
		Meta: trigger.Meta{
			EventID:    m.ID,
			GuildID:    m.GuildID,
			ChannelID:  m.ChannelID,
			Actor:      actor,
			Responder:  &textResponder{api: d.messages, channelID: m.ChannelID, messageID: m.ID},
			ReceivedAt: d.now(),
		},
		Source: trigger.PanelFromText,
	}, true
}

func (d *Decoder) MemberAdd(m *discordgo.GuildMemberAdd) (trigger.Trigger, bool) {
	if m == nil || m.Member == nil || m.User == nil || m.User.Bot {
		return nil, false
	}
	now := d.now()
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = now
	}
	return trigger.MemberJoined{
		Meta: trigger.Meta{
			EventID:    fmt.Sprintf("join:%s:%s:%d", m.GuildID, m.User.ID, joined.Unix()),
			GuildID:    m.GuildID,
			Actor:      permission.Actor{UserID: m.User.ID, Username: m.User.Username},
			Responder:  trigger.NopResponder{},
			ReceivedAt: now,
		},
		UserID:   m.User.ID,
		Username: m.User.Username,
	}, true
}

// MemberRemove carries no timestamp of its own, so redeliveries are matched
// within the same minute.
func (d *Decoder) MemberRemove(m *discordgo.GuildMemberRemove) (trigger.Trigger, bool) {
	if m == nil || m.Member == nil || m.User == nil || m.User.Bot {
		return nil, false
	}
	now := d.now()
	return trigger.MemberLeft{
		Meta: trigger.Meta{
			EventID:    fmt.Sprintf("leave:%s:%s:%d", m.GuildID, m.User.ID, now.Truncate(time.Minute).Unix()),
			GuildID:    m.GuildID,
			Actor:      permission.Actor{UserID: m.User.ID, Username: m.User.Username},
			Responder:  trigger.NopResponder{},
			ReceivedAt: now,
		},
		UserID:   m.User.ID,
		Username: m.User.Username,
	}, true
}

func actorFromMember(m *discordgo.Member) permission.Actor {
	return permission.Actor{
		UserID:        m.User.ID,
		Username:      m.User.Username,
		RoleIDs:       m.Roles,
		Administrator: m.Permissions&discordgo.PermissionAdministrator != 0,
	}
}

func userOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	for _, opt := range options {
		if opt == nil || opt.Name != name || opt.Type != discordgo.ApplicationCommandOptionUser {
			continue
		}
		id, ok := opt.Value.(string)
		return id, ok && id != ""
	}
	return "", false
}

// textInputValue digs a text input out of the submitted rows. The gateway
// delivers rows as pointers; values are accepted too.
func textInputValue(rows []discordgo.MessageComponent, customID string) string {
	for _, c := range rows {
		var children []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			children = row.Components
		case discordgo.ActionsRow:
			children = row.Components
		}
		for _, child := range children {
			switch in := child.(type) {
			case *discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			}
		}
	}
	return ""
}
