package discord

import (
	"bytes"

	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/platform"
)

// maxButtonsPerRow is Discord's limit for one action row.
const maxButtonsPerRow = 5

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary:   discordgo.PrimaryButton,
	platform.ButtonSecondary: discordgo.SecondaryButton,
	platform.ButtonSuccess:   discordgo.SuccessButton,
	platform.ButtonDanger:    discordgo.DangerButton,
	platform.ButtonLink:      discordgo.LinkButton,
}

// allowedMentions pings only the listed users. Role and everyone mentions
// are never parsed.
func allowedMentions(users []string) *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{},
		Users: users,
	}
}

func toEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.ThumbnailURL != "" {
			me.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
		}
		if e.ImageURL != "" {
			me.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

func fromEmbeds(embeds []*discordgo.MessageEmbed) []platform.Embed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]platform.Embed, 0, len(embeds))
	for _, me := range embeds {
		if me == nil {
			continue
		}
		e := platform.Embed{
			Title:       me.Title,
			Description: me.Description,
			Color:       me.Color,
		}
		if me.Thumbnail != nil {
			e.ThumbnailURL = me.Thumbnail.URL
		}
		if me.Image != nil {
			e.ImageURL = me.Image.URL
		}
		if me.Footer != nil {
			e.Footer = me.Footer.Text
		}
		for _, f := range me.Fields {
			if f == nil {
				continue
			}
			e.Fields = append(e.Fields, platform.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, e)
	}
	return out
}

// toComponents lays buttons out in rows of at most five.
func toComponents(buttons []platform.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := min(start+maxButtonsPerRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyles[b.Style],
				Disabled: b.Disabled,
			}
			if b.Style == platform.ButtonLink {
				btn.URL = b.URL
			} else {
				btn.CustomID = b.CustomID
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	return rows
}

func toFiles(files []platform.File) []*discordgo.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return out
}

func toMessageSend(msg platform.MessageSend) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         msg.Content,
		Embeds:          toEmbeds(msg.Embeds),
		Components:      toComponents(msg.Buttons),
		Files:           toFiles(msg.Files),
		AllowedMentions: allowedMentions(msg.MentionUsers),
	}
}

// toMessageEdit replaces content, embeds and components of an existing
// message. Files cannot be edited in and are ignored.
func toMessageEdit(channelID, messageID string, msg platform.MessageSend) *discordgo.MessageEdit {
	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetContent(msg.Content).
		SetEmbeds(toEmbeds(msg.Embeds))
	components := toComponents(msg.Buttons)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	edit.Components = &components
	edit.AllowedMentions = allowedMentions(msg.MentionUsers)
	return edit
}

func fromMessage(m *discordgo.Message) *platform.Message {
	if m == nil {
		return nil
	}
	out := &platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Embeds:    fromEmbeds(m.Embeds),
		PinNotice: m.Type == discordgo.MessageTypeChannelPinnedMessage,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = m.Author.Username
		out.AuthorBot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		out.Attachments = append(out.Attachments, platform.Attachment{Name: a.Filename, URL: a.URL})
	}
	return out
}

func fromChannel(c *discordgo.Channel) *platform.Channel {
	if c == nil {
		return nil
	}
	return &platform.Channel{
		ID:       c.ID,
		GuildID:  c.GuildID,
		Name:     c.Name,
		Topic:    c.Topic,
		ParentID: c.ParentID,
		Text:     c.Type == discordgo.ChannelTypeGuildText,
	}
}

func toOverwrites(overwrites []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		kind := discordgo.PermissionOverwriteTypeRole
		if o.Kind == platform.OverwriteMember {
			kind = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    o.ID,
			Type:  kind,
			Allow: int64(o.Allow),
			Deny:  int64(o.Deny),
		})
	}
	return out
}
