// Package bot routes decoded platform triggers to the application services
// and turns their results into private replies.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	memberusecases "github.com/sportello-bot/sportello/internal/application/member/usecases"
	panelusecases "github.com/sportello-bot/sportello/internal/application/panel/usecases"
	ticketusecases "github.com/sportello-bot/sportello/internal/application/ticket/usecases"
	"github.com/sportello-bot/sportello/internal/domain/trigger"
	"github.com/sportello-bot/sportello/internal/shared/goroutine"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// memberEventTimeout bounds a background welcome or goodbye notice.
const memberEventTimeout = 30 * time.Second

type TicketService interface {
	OpenTicket(ctx context.Context, cmd ticketusecases.OpenTicketCommand) (*ticketusecases.OpenTicketResult, error)
	RequestClose(ctx context.Context, cmd ticketusecases.RequestCloseCommand) (*ticketusecases.RequestCloseResult, error)
	CloseTicket(ctx context.Context, cmd ticketusecases.CloseTicketCommand) (*ticketusecases.CloseTicketResult, error)
	ManageMember(ctx context.Context, cmd ticketusecases.ManageMemberCommand) (*ticketusecases.ManageMemberResult, error)
	DownloadTranscript(ctx context.Context, cmd ticketusecases.DownloadTranscriptCommand) (*ticketusecases.DownloadTranscriptResult, error)
}

type PanelService interface {
	ShowPanel(ctx context.Context, cmd panelusecases.ShowPanelCommand) (*panelusecases.ShowPanelResult, error)
}

type MemberService interface {
	GreetMember(ctx context.Context, cmd memberusecases.GreetMemberCommand) (*memberusecases.GreetMemberResult, error)
}

// Dispatcher drops redelivered triggers and routes the rest by type.
type Dispatcher struct {
	tickets TicketService
	panels  PanelService
	members MemberService
	guard   *idempotency.Guard
	logger  logger.Interface

	onPanic    goroutine.PanicHandler
	background goroutine.Group
}

func NewDispatcher(tickets TicketService, panels PanelService, members MemberService, guard *idempotency.Guard, logger logger.Interface) *Dispatcher {
	return &Dispatcher{
		tickets: tickets,
		panels:  panels,
		members: members,
		guard:   guard,
		logger:  logger,
	}
}

// OnPanic registers the process-fatal handler. A panicking trigger still gets
// the internal error reply before fn runs. It must be called before the
// gateway starts delivering triggers.
func (d *Dispatcher) OnPanic(fn goroutine.PanicHandler) {
	d.onPanic = fn
	d.background.OnPanic = fn
}

// HandleTrigger never returns an error: failures are logged and the actor
// gets the internal error reply. Panics are escalated to the OnPanic handler.
func (d *Dispatcher) HandleTrigger(ctx context.Context, t trigger.Trigger) {
	meta := t.Metadata()
	log := d.logger.With("event_id", meta.EventID, "trigger", fmt.Sprintf("%T", t))

	if meta.EventID != "" {
		claimed, err := d.guard.Claim(ctx, idempotency.EventKey(meta.EventID))
		if err != nil {
			log.Warnw("failed to claim event, handling anyway", "error", err)
		} else if !claimed {
			log.Debugw("duplicate event dropped")
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic while handling trigger",
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			d.replyInternalError(ctx, meta)
			if d.onPanic != nil {
				d.onPanic("dispatcher", r)
			}
		}
	}()

	if err := d.dispatch(ctx, t); err != nil {
		log.Errorw("failed to handle trigger", "channel_id", meta.ChannelID, "user_id", meta.Actor.UserID, "error", err)
		d.replyInternalError(ctx, meta)
	}
}

// Wait blocks until background member notices have finished.
func (d *Dispatcher) Wait() {
	d.background.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, t trigger.Trigger) error {
	switch t := t.(type) {
	case trigger.OpenRequest:
		return d.openTicket(ctx, t)
	case trigger.CloseIntent:
		return d.closeIntent(ctx, t)
	case trigger.CloseRequest:
		return d.closeTicket(ctx, t)
	case trigger.PanelShowRequest:
		return d.showPanel(ctx, t)
	case trigger.DownloadRequest:
		return d.downloadTranscript(ctx, t)
	case trigger.MemberAddRequest:
		return d.manageMember(ctx, t.Meta, ticketusecases.MemberAdd, t.TargetUserID)
	case trigger.MemberRemoveRequest:
		return d.manageMember(ctx, t.Meta, ticketusecases.MemberRemove, t.TargetUserID)
	case trigger.MemberJoined:
		d.greetMember(ctx, memberusecases.GreetMemberCommand{
			Event:    memberusecases.MemberJoined,
			GuildID:  t.GuildID,
			UserID:   t.UserID,
			Username: t.Username,
		})
		return nil
	case trigger.MemberLeft:
		d.greetMember(ctx, memberusecases.GreetMemberCommand{
			Event:    memberusecases.MemberLeft,
			GuildID:  t.GuildID,
			UserID:   t.UserID,
			Username: t.Username,
		})
		return nil
	default:
		return fmt.Errorf("unhandled trigger %T", t)
	}
}

func (d *Dispatcher) openTicket(ctx context.Context, t trigger.OpenRequest) error {
	d.deferReply(ctx, t.Meta)
	result, err := d.tickets.OpenTicket(ctx, ticketusecases.OpenTicketCommand{
		GuildID:  t.GuildID,
		Actor:    t.Actor,
		Category: t.Category,
	})
	if err != nil {
		return err
	}
	return t.Responder.Reply(ctx, result.Message)
}

func (d *Dispatcher) closeIntent(ctx context.Context, t trigger.CloseIntent) error {
	result, err := d.tickets.RequestClose(ctx, ticketusecases.RequestCloseCommand{
		ChannelID: t.ChannelID,
		Actor:     t.Actor,
	})
	if err != nil {
		return err
	}
	if !result.Allowed {
		return t.Responder.Reply(ctx, result.Message)
	}
	return t.Responder.ShowCloseModal(ctx, t.ChannelID)
}

func (d *Dispatcher) closeTicket(ctx context.Context, t trigger.CloseRequest) error {
	d.deferReply(ctx, t.Meta)
	result, err := d.tickets.CloseTicket(ctx, ticketusecases.CloseTicketCommand{
		GuildID:         t.GuildID,
		ChannelID:       t.ChannelID,
		TargetChannelID: t.TargetChannelID,
		Actor:           t.Actor,
		Reason:          t.Reason,
	})
	if err != nil {
		return err
	}
	if result.Status == ticketusecases.CloseAccepted {
		// The announcement in the channel is the only visible answer.
		if err := t.Responder.Dismiss(ctx); err != nil {
			d.logger.Debugw("failed to dismiss close acknowledgement", "channel_id", t.ChannelID, "error", err)
		}
		return nil
	}
	return t.Responder.Reply(ctx, result.Message)
}

func (d *Dispatcher) showPanel(ctx context.Context, t trigger.PanelShowRequest) error {
	if t.Source == trigger.PanelFromCommand {
		d.deferReply(ctx, t.Meta)
	}
	result, err := d.panels.ShowPanel(ctx, panelusecases.ShowPanelCommand{
		GuildID:   t.GuildID,
		ChannelID: t.ChannelID,
		Actor:     t.Actor,
	})
	if err != nil {
		return err
	}
	if t.Source == trigger.PanelFromText {
		switch result.Status {
		case panelusecases.PanelPosted, panelusecases.PanelUpdated:
			return nil
		}
	}
	return t.Responder.Reply(ctx, result.Message)
}

func (d *Dispatcher) downloadTranscript(ctx context.Context, t trigger.DownloadRequest) error {
	d.deferReply(ctx, t.Meta)
	result, err := d.tickets.DownloadTranscript(ctx, ticketusecases.DownloadTranscriptCommand{
		Actor: t.Actor,
		Token: t.Token,
	})
	if err != nil {
		return err
	}
	if !result.Found {
		return t.Responder.Reply(ctx, result.Message)
	}
	return t.Responder.ReplyFile(ctx, result.Message, result.File)
}

func (d *Dispatcher) manageMember(ctx context.Context, meta trigger.Meta, op ticketusecases.MemberOp, target string) error {
	d.deferReply(ctx, meta)
	result, err := d.tickets.ManageMember(ctx, ticketusecases.ManageMemberCommand{
		Op:           op,
		ChannelID:    meta.ChannelID,
		Actor:        meta.Actor,
		TargetUserID: target,
	})
	if err != nil {
		return err
	}
	return meta.Responder.Reply(ctx, result.Message)
}

// greetMember runs in the background; nobody waits on a member event.
func (d *Dispatcher) greetMember(ctx context.Context, cmd memberusecases.GreetMemberCommand) {
	bgCtx := context.WithoutCancel(ctx)
	d.background.Go(d.logger, "member-"+string(cmd.Event), func() {
		ctx, cancel := context.WithTimeout(bgCtx, memberEventTimeout)
		defer cancel()
		if _, err := d.members.GreetMember(ctx, cmd); err != nil {
			d.logger.Warnw("member notice failed", "user_id", cmd.UserID, "event", cmd.Event, "error", err)
		}
	})
}

func (d *Dispatcher) deferReply(ctx context.Context, meta trigger.Meta) {
	if err := meta.Responder.Defer(ctx); err != nil {
		d.logger.Warnw("failed to acknowledge trigger", "event_id", meta.EventID, "error", err)
	}
}

func (d *Dispatcher) replyInternalError(ctx context.Context, meta trigger.Meta) {
	if meta.Responder == nil {
		return
	}
	if err := meta.Responder.Reply(ctx, ticketusecases.MsgInternalError); err != nil {
		d.logger.Warnw("failed to send internal error reply", "event_id", meta.EventID, "error", err)
	}
}
