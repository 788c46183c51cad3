package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/application/testutil"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/ticket"
	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type closeFixture struct {
	platform *testutil.MockPlatform
	store    *fakeStore
	coord    *Coordinator
	uc       *CloseTicketUseCase
}

func newCloseFixture(t *testing.T, p *testutil.MockPlatform, lockDir string) *closeFixture {
	t.Helper()
	if lockDir == "" {
		lockDir = t.TempDir()
	}
	settings := testSettings()
	guard := newTestGuard(t, lockDir)
	store := newFakeStore()
	coord := NewCoordinator(logger.NewNop())
	artifact := NewArtifactPipeline(p, &fakeRenderer{}, store, guard, settings, logger.NewNop())
	uc := NewCloseTicketUseCase(p, &testutil.RoleChecker{}, guard, coord, artifact, settings, logger.NewNop())
	uc.sleep = func(time.Duration) {}
	return &closeFixture{platform: p, store: store, coord: coord, uc: uc}
}

func closeCmd(channelID, reason string) CloseTicketCommand {
	return CloseTicketCommand{
		GuildID:         testGuildID,
		ChannelID:       channelID,
		TargetChannelID: channelID,
		Actor:           testutil.StaffActor("7"),
		Reason:          reason,
	}
}

func auditRecords(p *testutil.MockPlatform) []platform.MessageSend {
	return p.SentTo(testLogChannelID)
}

func fieldValue(msg platform.MessageSend, name string) string {
	for _, e := range msg.Embeds {
		for _, f := range e.Fields {
			if f.Name == name {
				return f.Value
			}
		}
	}
	return ""
}

func TestCloseTicketUseCase_Execute_Success(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	_, err := p.SendMessage(context.Background(), ch, platform.MessageSend{Content: "ho un problema"})
	require.NoError(t, err)
	f := newCloseFixture(t, p, "")

	result, err := f.uc.Execute(context.Background(), closeCmd(ch, "  Risolto  "))
	require.NoError(t, err)
	f.coord.Wait()

	assert.Equal(t, CloseAccepted, result.Status)
	assert.True(t, result.AuditSent)
	assert.Equal(t, []string{ch}, p.DeletedChannels())

	records := auditRecords(p)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "**Ticket:** 🎫 | `🔫・ticket-mario`", fieldValue(rec, "Ticket"))
	assert.Equal(t, "**Aperto da:** <@42>", fieldValue(rec, "Aperto da"))
	assert.Equal(t, "**Concluso da:** <@7>", fieldValue(rec, "Concluso da"))
	assert.Equal(t, "**Categoria:** Braccio Armato", fieldValue(rec, "Categoria"))
	assert.Equal(t, "**Motivazione:** Risolto", fieldValue(rec, "Motivazione"))
	assert.True(t, strings.HasPrefix(rec.Embeds[0].Footer, "LOG Ticket - Oggi alle "))

	require.Len(t, rec.Buttons, 1)
	token, ok := strings.CutPrefix(rec.Buttons[0].CustomID, "transcript_dl:")
	require.True(t, ok)
	stored, err := f.store.Get(context.Background(), token)
	require.NoError(t, err)
	assert.Contains(t, string(stored.HTML), "ho un problema")
	assert.Contains(t, string(stored.HTML), "Chiusura Ticket in Corso")

	announcements := p.SentTo(ch)
	require.Len(t, announcements, 2)
	assert.Equal(t, "staff7: Chiusura Ticket in Corso... | **Motivazione**: Risolto", announcements[1].Content)

	assert.False(t, f.coord.IsClosing(ch))
}

func TestCloseTicketUseCase_Execute_DuplicateWhileClosing(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("📄・ticket-mario", ticket.BuildTopic(vo.CategoryInformational, "42", time.Now()))
	f := newCloseFixture(t, p, "")

	gate := make(chan struct{})
	f.uc.sleep = func(time.Duration) { <-gate }

	first, err := f.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	require.Equal(t, CloseAccepted, first.Status)

	dup, err := f.uc.Execute(context.Background(), closeCmd(ch, "dup"))
	require.NoError(t, err)
	assert.Equal(t, CloseAlreadyClosing, dup.Status)
	assert.Equal(t, MsgAlreadyClosing, dup.Message)

	close(gate)
	f.coord.Wait()

	records := auditRecords(p)
	require.Len(t, records, 1)
	assert.Equal(t, "**Motivazione:** Risolto", fieldValue(records[0], "Motivazione"))
	assert.Equal(t, []string{ch}, p.DeletedChannels())

	after, err := f.uc.Execute(context.Background(), closeCmd(ch, "late"))
	require.NoError(t, err)
	assert.Equal(t, CloseNotTicket, after.Status)
}

func TestCloseTicketUseCase_Execute_ConcurrentDuplicates(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	f := newCloseFixture(t, p, "")
	fixed := time.Date(2026, 10, 12, 15, 4, 10, 0, time.UTC)
	f.uc.now = func() time.Time { return fixed }

	const n = 8
	statuses := make([]CloseStatus, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
			if assert.NoError(t, err) {
				statuses[i] = r.Status
			}
		}(i)
	}
	wg.Wait()
	f.coord.Wait()

	accepted := 0
	for _, s := range statuses {
		if s == CloseAccepted {
			accepted++
		}
	}
	assert.GreaterOrEqual(t, accepted, 1)
	assert.Len(t, auditRecords(p), 1)
	assert.Equal(t, []string{ch}, p.DeletedChannels())
}

func TestCloseTicketUseCase_Execute_TwoInstancesShareLocks(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	lockDir := t.TempDir()
	a := newCloseFixture(t, p, lockDir)
	b := newCloseFixture(t, p, lockDir)

	gate := make(chan struct{})
	a.uc.sleep = func(time.Duration) { <-gate }

	first, err := a.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	require.Equal(t, CloseAccepted, first.Status)

	second, err := b.uc.Execute(context.Background(), closeCmd(ch, "dup"))
	require.NoError(t, err)
	assert.Equal(t, CloseAlreadyClosing, second.Status)

	close(gate)
	a.coord.Wait()
	b.coord.Wait()
	assert.Len(t, auditRecords(p), 1)
}

func TestCloseTicketUseCase_Execute_RetryAfterFailedDeleteKeepsOneAudit(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	p.SetDeleteErr(errors.New("missing permissions"))
	f := newCloseFixture(t, p, "")
	fixed := time.Date(2026, 10, 12, 15, 4, 10, 0, time.UTC)
	f.uc.now = func() time.Time { return fixed }

	first, err := f.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	f.coord.Wait()
	assert.True(t, first.AuditSent)
	assert.Empty(t, p.DeletedChannels())

	p.SetDeleteErr(nil)
	f.uc.now = func() time.Time { return fixed.Add(20 * time.Second) }

	second, err := f.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	f.coord.Wait()

	assert.Equal(t, CloseAccepted, second.Status)
	assert.False(t, second.AuditSent)
	assert.Len(t, auditRecords(p), 1)
	assert.Equal(t, []string{ch}, p.DeletedChannels())
}

func TestCloseTicketUseCase_Execute_UnknownTopicDegrades(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("ticket-legacy", "canale di supporto")
	f := newCloseFixture(t, p, "")

	result, err := f.uc.Execute(context.Background(), closeCmd(ch, ""))
	require.NoError(t, err)
	f.coord.Wait()

	require.Equal(t, CloseAccepted, result.Status)
	records := auditRecords(p)
	require.Len(t, records, 1)
	assert.Equal(t, "**Aperto da:** Sconosciuto", fieldValue(records[0], "Aperto da"))
	assert.Equal(t, "**Categoria:** Sconosciuta", fieldValue(records[0], "Categoria"))
	assert.Equal(t, "**Motivazione:** Nessuna motivazione fornita.", fieldValue(records[0], "Motivazione"))
}

func TestCloseTicketUseCase_Execute_AuditDropStillDeletes(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	p.SetSendErr(func(channelID string) error {
		if channelID == testLogChannelID {
			return errors.New("unknown channel")
		}
		return nil
	})
	f := newCloseFixture(t, p, "")

	result, err := f.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	f.coord.Wait()

	assert.Equal(t, CloseAccepted, result.Status)
	assert.False(t, result.AuditSent)
	assert.Equal(t, []string{ch}, p.DeletedChannels())
	assert.False(t, f.coord.IsClosing(ch))
}

func TestCloseTicketUseCase_Execute_RenderFailureStillAudits(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	settings := testSettings()
	guard := newTestGuard(t, "")
	coord := NewCoordinator(logger.NewNop())
	artifact := NewArtifactPipeline(p, &fakeRenderer{err: errors.New("boom")}, newFakeStore(), guard, settings, logger.NewNop())
	uc := NewCloseTicketUseCase(p, &testutil.RoleChecker{}, guard, coord, artifact, settings, logger.NewNop())
	uc.sleep = func(time.Duration) {}

	result, err := uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	coord.Wait()

	assert.True(t, result.AuditSent)
	records := auditRecords(p)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Buttons)
}

func TestCloseTicketUseCase_Execute_Rejections(t *testing.T) {
	p := testutil.NewMockPlatform()
	ticketCh := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	plainCh := p.AddChannel("general", "")
	f := newCloseFixture(t, p, "")

	tests := []struct {
		name string
		cmd  CloseTicketCommand
		want CloseStatus
	}{
		{
			name: "form submitted in another channel",
			cmd: CloseTicketCommand{
				ChannelID:       plainCh,
				TargetChannelID: ticketCh,
				Actor:           testutil.StaffActor("7"),
				Reason:          "Risolto",
			},
			want: CloseWrongChannel,
		},
		{
			name: "not a ticket channel",
			cmd:  closeCmd(plainCh, "Risolto"),
			want: CloseNotTicket,
		},
		{
			name: "missing channel",
			cmd:  closeCmd("404", "Risolto"),
			want: CloseNotTicket,
		},
		{
			name: "no close role",
			cmd: CloseTicketCommand{
				ChannelID:       ticketCh,
				TargetChannelID: ticketCh,
				Actor:           testutil.UserActor("42", "mario"),
				Reason:          "Risolto",
			},
			want: CloseForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.uc.Execute(context.Background(), tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.NotEmpty(t, result.Message)
		})
	}

	assert.Empty(t, p.DeletedChannels())
	assert.Empty(t, auditRecords(p))
}

func TestCloseTicketUseCase_Execute_AdministratorMayClose(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	f := newCloseFixture(t, p, "")

	cmd := closeCmd(ch, "Risolto")
	cmd.Actor = permission.Actor{UserID: "1", Username: "admin", Administrator: true}
	result, err := f.uc.Execute(context.Background(), cmd)
	require.NoError(t, err)
	f.coord.Wait()

	assert.Equal(t, CloseAccepted, result.Status)
}

func TestCloseTicketUseCase_Execute_LockHeldElsewhere(t *testing.T) {
	p := testutil.NewMockPlatform()
	ch := p.AddChannel("🔫・ticket-mario", ticket.BuildTopic(vo.CategoryArmedBranch, "42", time.Now()))
	lockDir := t.TempDir()
	f := newCloseFixture(t, p, lockDir)

	other := newTestGuard(t, lockDir)
	release, err := other.Hold(context.Background(), idempotency.CloseKey(ch), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, release)
	defer release()

	result, err := f.uc.Execute(context.Background(), closeCmd(ch, "Risolto"))
	require.NoError(t, err)
	assert.Equal(t, CloseAlreadyClosing, result.Status)
	assert.False(t, f.coord.IsClosing(ch))
}

func TestNormalizeReason(t *testing.T) {
	assert.Equal(t, closeReasonDefault, normalizeReason("   "))
	assert.Equal(t, "Risolto", normalizeReason(" Risolto\n"))
	long := strings.Repeat("è", 1000)
	assert.Equal(t, closeReasonMax, len([]rune(normalizeReason(long))))
}
