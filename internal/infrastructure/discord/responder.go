package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/trigger"
)

// Close form copy.
const (
	closeModalTitle       = "Sez. Ticket - Chiudi Ticket"
	closeModalLabel       = "❓・Motivazione:"
	closeModalPlaceholder = "Scrivi una Motivazione (es: Risolto, Non Risolto, ecc.)."
)

// interactionAPI is the part of *discordgo.Session the responder needs.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
}

// interactionResponder answers one interaction privately. The first answer
// is an initial response; every later one edits it.
type interactionResponder struct {
	api         interactionAPI
	interaction *discordgo.Interaction

	mu           sync.Mutex
	acknowledged bool
}

var _ trigger.Responder = (*interactionResponder)(nil)

func newInteractionResponder(api interactionAPI, i *discordgo.Interaction) *interactionResponder {
	return &interactionResponder{api: api, interaction: i}
}

func (r *interactionResponder) Defer(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acknowledged {
		return nil
	}
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return translate("defer interaction", err)
	}
	r.acknowledged = true
	return nil
}

func (r *interactionResponder) Reply(ctx context.Context, content string) error {
	return r.respond(ctx, content, nil)
}

func (r *interactionResponder) ReplyFile(ctx context.Context, content string, file platform.File) error {
	return r.respond(ctx, content, toFiles([]platform.File{file}))
}

func (r *interactionResponder) respond(ctx context.Context, content string, files []*discordgo.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.acknowledged {
		_, err := r.api.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
			Content:         &content,
			Files:           files,
			AllowedMentions: allowedMentions(nil),
		}, discordgo.WithContext(ctx))
		return translate("edit interaction reply", err)
	}

	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Files:           files,
			Flags:           discordgo.MessageFlagsEphemeral,
			AllowedMentions: allowedMentions(nil),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return translate("reply to interaction", err)
	}
	r.acknowledged = true
	return nil
}

func (r *interactionResponder) Dismiss(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.acknowledged {
		return nil
	}
	return translate("delete interaction reply", r.api.InteractionResponseDelete(r.interaction, discordgo.WithContext(ctx)))
}

func (r *interactionResponder) ShowCloseModal(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.api.InteractionRespond(r.interaction, closeModal(channelID), discordgo.WithContext(ctx))
	if err != nil {
		return translate("show close modal", err)
	}
	r.acknowledged = true
	return nil
}

func closeModal(channelID string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: trigger.CloseModalID(channelID),
			Title:    closeModalTitle,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    trigger.CloseReasonField,
							Label:       closeModalLabel,
							Style:       discordgo.TextInputParagraph,
							Placeholder: closeModalPlaceholder,
							Required:    true,
							MinLength:   trigger.ReasonMinLength,
							MaxLength:   trigger.ReasonMaxLength,
						},
					},
				},
			},
		},
	}
}

// messageAPI is the part of *discordgo.Session the text responder needs.
type messageAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// textResponder answers a text command with a reply in the same channel.
// Text commands cannot be deferred, dismissed or answered with a form.
type textResponder struct {
	api       messageAPI
	channelID string
	messageID string
}

var _ trigger.Responder = (*textResponder)(nil)

func (r *textResponder) Defer(context.Context) error { return nil }

func (r *textResponder) Dismiss(context.Context) error { return nil }

func (r *textResponder) ShowCloseModal(context.Context, string) error { return nil }

func (r *textResponder) Reply(ctx context.Context, content string) error {
	return r.send(ctx, &discordgo.MessageSend{Content: content})
}

func (r *textResponder) ReplyFile(ctx context.Context, content string, file platform.File) error {
	return r.send(ctx, &discordgo.MessageSend{Content: content, Files: toFiles([]platform.File{file})})
}

func (r *textResponder) send(ctx context.Context, msg *discordgo.MessageSend) error {
	msg.AllowedMentions = allowedMentions(nil)
	msg.Reference = &discordgo.MessageReference{MessageID: r.messageID, ChannelID: r.channelID}
	_, err := r.api.ChannelMessageSendComplex(r.channelID, msg, discordgo.WithContext(ctx))
	return translate("reply to text command", err)
}
