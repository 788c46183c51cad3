package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	memberApp "github.com/sportello-bot/sportello/internal/application/member"
	memberusecases "github.com/sportello-bot/sportello/internal/application/member/usecases"
	panelApp "github.com/sportello-bot/sportello/internal/application/panel"
	panelusecases "github.com/sportello-bot/sportello/internal/application/panel/usecases"
	ticketApp "github.com/sportello-bot/sportello/internal/application/ticket"
	ticketusecases "github.com/sportello-bot/sportello/internal/application/ticket/usecases"
	"github.com/sportello-bot/sportello/internal/infrastructure/discord"
	"github.com/sportello-bot/sportello/internal/infrastructure/instance"
	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/infrastructure/permission"
	"github.com/sportello-bot/sportello/internal/infrastructure/repository"
	"github.com/sportello-bot/sportello/internal/infrastructure/scheduler"
	tmplloader "github.com/sportello-bot/sportello/internal/infrastructure/template"
	"github.com/sportello-bot/sportello/internal/infrastructure/transcript"
	"github.com/sportello-bot/sportello/internal/interfaces/bot"
	"github.com/sportello-bot/sportello/internal/interfaces/cli"
	httpRouter "github.com/sportello-bot/sportello/internal/interfaces/http"
	"github.com/sportello-bot/sportello/internal/shared/goroutine"
	"github.com/sportello-bot/sportello/internal/shared/logger"
	"github.com/sportello-bot/sportello/internal/shared/services/markdown"
	"github.com/sportello-bot/sportello/internal/shared/version"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ticket bot",
		Long:  `Connect to Discord and serve the ticket panel, together with the background jobs and, when enabled, the transcript HTTP endpoint.`,
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := cli.Bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config
	log := rt.Logger

	log.Infow("starting sportello",
		"version", version.String(),
		"guild_id", cfg.Discord.GuildID,
		"lock_store", rt.Locks.Name(),
	)

	guard := instance.NewGuard(cfg.Storage.LocksDir(), cfg.Discord.ClientID, cfg.Lock.InstanceTTL, rt.Locks, log.Named("instance"))
	if err := guard.Claim(ctx); err != nil {
		return fmt.Errorf("failed to claim instance lock: %w", err)
	}
	defer guard.Release()

	releaseAll := func() {
		guard.Release()
		rt.Close()
	}
	crash := &crashHandler{logger: log, release: releaseAll, exit: os.Exit}
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic in serve", "panic", fmt.Sprintf("%v", r), "stack", string(debug.Stack()))
			crash.Handle("serve", r)
		}
	}()

	enforcer, err := permission.NewEnforcer(cfg.Roles, log.Named("permission"))
	if err != nil {
		return fmt.Errorf("failed to initialize permissions: %w", err)
	}

	idem := idempotency.NewGuard(rt.Locks, cfg.Lock.TTL, log.Named("idempotency"))

	store, err := transcript.NewFileStore(cfg.Storage.TranscriptsDir(), cfg.Transcript.Retention, rt.Locks, log.Named("transcript"))
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}

	loader := tmplloader.NewLoader(cfg.Transcript.TemplateDir, log.Named("template"))
	if err := loader.Load(); err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	renderer, err := transcript.NewHTMLRenderer(markdown.NewMarkdownService(), loader)
	if err != nil {
		return err
	}

	schedule, err := cfg.SupportSchedule()
	if err != nil {
		return err
	}
	parents, err := cfg.CategoryParents()
	if err != nil {
		return err
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	client := discord.NewClient(session, log.Named("discord"))

	ticketService := ticketApp.NewServiceDDD(client, enforcer, idem, renderer, store, ticketusecases.Settings{
		StaffRoleID:     cfg.Roles.Staff,
		CloseRoleID:     cfg.Roles.Close,
		BypassRoleID:    cfg.Roles.Bypass,
		LogChannelID:    cfg.Tickets.LogChannelID,
		CategoryParents: parents,
		OpenLockTTL:     cfg.Tickets.OpenLockTTL,
		CloseLockTTL:    cfg.Tickets.CloseLockTTL,
		AuditBucket:     cfg.Tickets.AuditBucket,
		CloseGrace:      cfg.Tickets.CloseGrace,
		SupportHours:    schedule,
		ThumbnailURL:    cfg.Panel.ThumbnailURL,
		PublicBaseURL:   publicBaseURL(cfg.HTTP.Enabled, cfg.HTTP.PublicBaseURL),
	}, log.Named("ticket"))
	ticketService.OnPanic(crash.Handle)

	panelRepo := repository.NewPanelRepository(cfg.Storage.PanelStatePath(), rt.Locks, log.Named("panel.repository"))
	panelService := panelApp.NewServiceDDD(client, panelRepo, enforcer, idem, cfg.Lock.TTL, panelusecases.Settings{
		BannerURL:    cfg.Panel.BannerURL,
		ThumbnailURL: cfg.Panel.ThumbnailURL,
		HoursLines:   ticketusecases.FormatSchedule(schedule),
	}, log.Named("panel"))

	memberService := memberApp.NewServiceDDD(client, idem, memberusecases.Settings{
		JoinRoleID:       cfg.Roles.Join,
		WelcomeChannelID: cfg.Tickets.WelcomeChannelID,
	}, log.Named("member"))

	dispatcher := bot.NewDispatcher(ticketService, panelService, memberService, idem, log.Named("dispatcher"))
	dispatcher.OnPanic(crash.Handle)
	gateway := discord.NewGateway(session, dispatcher, cfg.Discord.ClientID, cfg.Discord.GuildID, log.Named("gateway"))

	schedulerManager, err := scheduler.NewSchedulerManager(log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := schedulerManager.RegisterTranscriptSweepJob(scheduler.BatchJobFunc(store.Sweep), cfg.Transcript.SweepInterval); err != nil {
		return err
	}
	refreshJob := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
		result, err := panelService.RefreshPanels(ctx)
		if err != nil {
			return 0, err
		}
		return result.Refreshed, nil
	})
	if err := schedulerManager.RegisterPanelRefreshJob(refreshJob, cfg.Panel.RefreshInterval); err != nil {
		return err
	}
	if err := schedulerManager.RegisterInstanceHeartbeat(guard, cfg.Lock.InstanceRenewInterval, func(err error) {
		if errors.Is(err, lock.ErrLeaseLost) {
			log.Errorw("instance lock taken over by another process, shutting down", "error", err)
			stop()
		}
	}); err != nil {
		return err
	}

	if err := gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	schedulerManager.Start()

	background := goroutine.Group{OnPanic: crash.Handle}
	if cfg.HTTP.Enabled {
		gin.SetMode(gin.ReleaseMode)
		gin.DefaultWriter = io.Discard

		router := httpRouter.NewRouter(store, log)
		router.SetupRoutes()
		server := httpRouter.NewServer(cfg.HTTP.GetAddr(), router, log.Named("http"))
		background.Go(log, "http-server", func() {
			if err := server.Run(ctx); err != nil {
				log.Errorw("http server failed", "error", err)
				stop()
			}
		})
	}

	log.Infow("sportello is running")
	<-ctx.Done()
	log.Infow("shutting down")

	gateway.Stop()
	dispatcher.Wait()
	ticketService.Wait()
	if err := schedulerManager.Stop(); err != nil {
		log.Warnw("failed to stop scheduler", "error", err)
	}
	background.Wait()

	log.Infow("sportello stopped")
	return nil
}

// crashHandler makes a panic anywhere in the bot process-fatal: the first one
// releases the instance lock and exits non-zero. Concurrent panics block
// until the exit.
type crashHandler struct {
	once    sync.Once
	logger  logger.Interface
	release func()
	exit    func(code int)
}

func (h *crashHandler) Handle(source string, recovered any) {
	h.once.Do(func() {
		h.logger.Errorw("fatal panic, releasing instance lock and exiting",
			"source", source,
			"panic", fmt.Sprintf("%v", recovered),
		)
		h.release()
		h.exit(1)
	})
}

// publicBaseURL returns the base for transcript links in audit records, or ""
// when the HTTP endpoint is off and links would be dead.
func publicBaseURL(enabled bool, base string) string {
	if !enabled {
		return ""
	}
	return base
}
