package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/application/testutil"
	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

const (
	testGuildID      = testutil.GuildID
	testLogChannelID = "900"
	testStaffRole    = testutil.StaffRole
	testCloseRole    = testutil.CloseRole
	testBypassRole   = testutil.BypassRole
)

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(_ context.Context, src transcript.Source) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	var b strings.Builder
	b.WriteString("<html>" + src.ChannelName)
	for _, m := range src.Messages {
		b.WriteString("<p>" + m.Content + "</p>")
	}
	b.WriteString("</html>")
	return []byte(b.String()), nil
}

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*transcript.Transcript
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*transcript.Transcript)}
}

func (s *fakeStore) Put(_ context.Context, name string, html []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token := fmt.Sprintf("tok%021d", len(s.entries)+1)
	s.entries[token] = &transcript.Transcript{Token: token, Name: name, CreatedAt: time.Now(), HTML: html}
	return token, nil
}

func (s *fakeStore) Get(_ context.Context, token string) (*transcript.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.entries[token]
	if !ok {
		return nil, transcript.ErrNotFound
	}
	return tr, nil
}

func testSettings() Settings {
	return Settings{
		StaffRoleID:  testStaffRole,
		CloseRoleID:  testCloseRole,
		BypassRoleID: testBypassRole,
		LogChannelID: testLogChannelID,
		CategoryParents: map[vo.Category]string{
			vo.CategoryArmedBranch:   "cat-armed",
			vo.CategoryInformational: "cat-info",
		},
		OpenLockTTL:  15 * time.Second,
		CloseLockTTL: 2 * time.Minute,
		AuditBucket:  time.Minute,
		CloseGrace:   0,
		ThumbnailURL: "https://example.test/thumb.png",
	}
}

// newTestGuard builds a guard over a filesystem lock directory. Guards built
// over the same dir behave like two instances sharing a lock store.
func newTestGuard(t *testing.T, dir string) *idempotency.Guard {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	provider, err := lock.NewFileProvider(dir, logger.NewNop())
	require.NoError(t, err)
	return idempotency.NewGuard(provider, time.Minute, logger.NewNop())
}
