package discord

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// historyPageSize is the largest page the messages endpoint returns.
const historyPageSize = 100

// Client implements platform.Platform over a discordgo session.
type Client struct {
	session *discordgo.Session
	logger  logger.Interface
}

var _ platform.Platform = (*Client)(nil)

// NewSession creates a bot session with the intents the ticket bot needs.
// The session is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent
	return s, nil
}

// NewClient creates a new Discord platform client
func NewClient(session *discordgo.Session, logger logger.Interface) *Client {
	return &Client{session: session, logger: logger}
}

// BotUserID is known once the gateway sent Ready; before that it is empty.
func (c *Client) BotUserID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *Client) GuildName(ctx context.Context, guildID string) (string, error) {
	if c.session.State != nil {
		if g, err := c.session.State.Guild(guildID); err == nil && g.Name != "" {
			return g.Name, nil
		}
	}
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate("fetch guild", err)
	}
	return g.Name, nil
}

// GuildChannels always hits the REST API; the state cache may lag behind
// channels created moments ago by another handler.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("fetch guild channels", err)
	}
	out := make([]platform.Channel, 0, len(channels))
	for _, ch := range channels {
		if pc := fromChannel(ch); pc != nil {
			out = append(out, *pc)
		}
	}
	return out, nil
}

func (c *Client) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("fetch channel", err)
	}
	return fromChannel(ch), nil
}

func (c *Client) CreateTextChannel(ctx context.Context, req platform.CreateChannelRequest) (*platform.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                req.Topic,
		ParentID:             req.ParentID,
		PermissionOverwrites: toOverwrites(req.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("create channel", err)
	}
	c.logger.Debugw("discord channel created", "channel_id", ch.ID, "name", ch.Name, "reason", req.Reason)
	return fromChannel(ch), nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID, reason string) error {
	if _, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return translate("delete channel", err)
	}
	c.logger.Debugw("discord channel deleted", "channel_id", channelID, "reason", reason)
	return nil
}

func (c *Client) SetMemberOverwrite(ctx context.Context, channelID, userID string, allow platform.Permission, reason string) error {
	err := c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, int64(allow), 0, discordgo.WithContext(ctx))
	if err != nil {
		return translate("set member overwrite", err)
	}
	c.logger.Debugw("member overwrite set", "channel_id", channelID, "user_id", userID, "reason", reason)
	return nil
}

func (c *Client) RemoveMemberOverwrite(ctx context.Context, channelID, userID, reason string) error {
	if err := c.session.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx)); err != nil {
		return translate("remove member overwrite", err)
	}
	c.logger.Debugw("member overwrite removed", "channel_id", channelID, "user_id", userID, "reason", reason)
	return nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.MessageSend) (*platform.Message, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("send message", err)
	}
	return fromMessage(m), nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg platform.MessageSend) (*platform.Message, error) {
	m, err := c.session.ChannelMessageEditComplex(toMessageEdit(channelID, messageID, msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("edit message", err)
	}
	return fromMessage(m), nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return translate("delete message", c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (c *Client) GetMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("fetch message", err)
	}
	return fromMessage(m), nil
}

func (c *Client) PinMessage(ctx context.Context, channelID, messageID string) error {
	return translate("pin message", c.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx)))
}

// RecentMessages returns up to limit messages, newest first.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, min(limit, historyPageSize), "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate("fetch recent messages", err)
	}
	out := make([]platform.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, *fromMessage(m))
	}
	return out, nil
}

// ChannelHistory pages backwards through the whole channel.
func (c *Client) ChannelHistory(ctx context.Context, channelID string) ([]platform.Message, error) {
	var (
		out    []platform.Message
		before string
	)
	for {
		page, err := c.session.ChannelMessages(channelID, historyPageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate("fetch channel history", err)
		}
		for _, m := range page {
			out = append(out, *fromMessage(m))
		}
		if len(page) < historyPageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	slices.Reverse(out)
	return out, nil
}

func (c *Client) AssignRole(ctx context.Context, guildID, userID, roleID string) error {
	return translate("assign role", c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}
