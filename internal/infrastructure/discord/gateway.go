package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/trigger"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// TriggerHandler receives every decoded trigger.
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, t trigger.Trigger)
}

// Gateway owns the websocket session. discordgo runs each event handler in
// its own goroutine, so HandleTrigger calls interleave.
type Gateway struct {
	session *discordgo.Session
	decoder *Decoder
	handler TriggerHandler
	appID   string
	guildID string
	logger  logger.Interface

	cancelFunc context.CancelFunc
	removers   []func()
	isRunning  bool
	runningMu  sync.Mutex
}

// NewGateway creates a new gateway for one guild.
func NewGateway(session *discordgo.Session, handler TriggerHandler, appID, guildID string, logger logger.Interface) *Gateway {
	return &Gateway{
		session: session,
		decoder: NewDecoder(session, session),
		handler: handler,
		appID:   appID,
		guildID: guildID,
		logger:  logger,
	}
}

// Start opens the session and registers slash commands. A failed command
// registration is logged; the text fallback keeps the panel reachable.
func (g *Gateway) Start(ctx context.Context) error {
	g.runningMu.Lock()
	defer g.runningMu.Unlock()
	if g.isRunning {
		return nil
	}

	eventCtx, cancel := context.WithCancel(context.Background())
	g.cancelFunc = cancel
	g.removers = []func(){
		g.session.AddHandler(g.onReady),
		g.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			if t, ok := g.decoder.Interaction(i); ok {
				g.handler.HandleTrigger(eventCtx, t)
			}
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			if t, ok := g.decoder.Message(m); ok {
				g.handler.HandleTrigger(eventCtx, t)
			}
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
			if t, ok := g.decoder.MemberAdd(m); ok {
				g.handler.HandleTrigger(eventCtx, t)
			}
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
			if t, ok := g.decoder.MemberRemove(m); ok {
				g.handler.HandleTrigger(eventCtx, t)
			}
		}),
	}

	if err := g.session.Open(); err != nil {
		g.removeHandlers()
		cancel()
		return fmt.Errorf("open discord session: %w", err)
	}
	g.isRunning = true

	if _, err := g.session.ApplicationCommandBulkOverwrite(g.appID, g.guildID, SlashCommands(), discordgo.WithContext(ctx)); err != nil {
		g.logger.Warnw("failed to register slash commands, use !ticketpanel", "guild_id", g.guildID, "error", err)
	} else {
		g.logger.Infow("slash commands registered", "guild_id", g.guildID, "count", len(SlashCommands()))
	}

	g.logger.Infow("discord gateway started", "guild_id", g.guildID)
	return nil
}

// Stop closes the session and cancels the context of running handlers.
func (g *Gateway) Stop() {
	g.runningMu.Lock()
	defer g.runningMu.Unlock()
	if !g.isRunning {
		return
	}
	g.isRunning = false
	g.removeHandlers()
	if err := g.session.Close(); err != nil {
		g.logger.Warnw("failed to close discord session", "error", err)
	}
	if g.cancelFunc != nil {
		g.cancelFunc()
	}
	g.logger.Infow("discord gateway stopped")
}

func (g *Gateway) removeHandlers() {
	for _, remove := range g.removers {
		remove()
	}
	g.removers = nil
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	g.logger.Infow("discord session ready", "user", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))
}
