package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sportello-bot/sportello/internal/domain/panel"
	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/logger"
	"github.com/sportello-bot/sportello/internal/shared/utils/jsonutil"
)

// PanelIndexLockKey guards read-modify-write of the panel state file.
const PanelIndexLockKey = "panel:index"

const (
	panelLockTTL      = 10 * time.Second
	panelLockAttempts = 50
	panelLockDelay    = 50 * time.Millisecond
)

var _ panel.Repository = (*PanelRepository)(nil)

// PanelRepository stores panel records in a JSON file shaped
// {"panel:<guild>:<channel>": "<messageId>"}.
type PanelRepository struct {
	path   string
	locks  lock.Provider
	logger logger.Interface
}

func NewPanelRepository(path string, locks lock.Provider, log logger.Interface) *PanelRepository {
	return &PanelRepository{
		path:   path,
		locks:  locks,
		logger: log,
	}
}

func (r *PanelRepository) Find(_ context.Context, guildID, channelID string) (*panel.Record, error) {
	state, err := r.read()
	if err != nil {
		return nil, err
	}
	messageID, ok := state[panel.Key(guildID, channelID)]
	if !ok || messageID == "" {
		return nil, nil
	}
	return &panel.Record{GuildID: guildID, ChannelID: channelID, MessageID: messageID}, nil
}

func (r *PanelRepository) Save(ctx context.Context, record panel.Record) error {
	return r.update(ctx, func(state map[string]string) bool {
		if state[record.Key()] == record.MessageID {
			return false
		}
		state[record.Key()] = record.MessageID
		return true
	})
}

func (r *PanelRepository) Delete(ctx context.Context, guildID, channelID string) error {
	key := panel.Key(guildID, channelID)
	return r.update(ctx, func(state map[string]string) bool {
		if _, ok := state[key]; !ok {
			return false
		}
		delete(state, key)
		return true
	})
}

func (r *PanelRepository) List(_ context.Context) ([]panel.Record, error) {
	state, err := r.read()
	if err != nil {
		return nil, err
	}
	records := make([]panel.Record, 0, len(state))
	for key, messageID := range state {
		guildID, channelID, ok := panel.ParseKey(key)
		if !ok {
			r.logger.Warnw("ignoring malformed panel state key", "key", key)
			continue
		}
		records = append(records, panel.Record{GuildID: guildID, ChannelID: channelID, MessageID: messageID})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key() < records[j].Key() })
	return records, nil
}

func (r *PanelRepository) update(ctx context.Context, fn func(map[string]string) bool) error {
	lease, granted, err := lock.AcquireWithRetry(ctx, r.locks, PanelIndexLockKey, panelLockTTL, panelLockAttempts, panelLockDelay)
	if err != nil {
		return fmt.Errorf("failed to lock panel state: %w", err)
	}
	if !granted {
		return fmt.Errorf("failed to lock panel state: still held after %d attempts", panelLockAttempts)
	}
	defer func() {
		if err := r.locks.Release(context.Background(), lease); err != nil {
			r.logger.Warnw("failed to release panel state lock", "error", err)
		}
	}()

	state, err := r.read()
	if err != nil {
		return err
	}
	if !fn(state) {
		return nil
	}
	if err := jsonutil.WriteFileAtomic(r.path, state); err != nil {
		return fmt.Errorf("failed to save panel state: %w", err)
	}
	return nil
}

func (r *PanelRepository) read() (map[string]string, error) {
	state := map[string]string{}
	if _, err := jsonutil.ReadFile(r.path, &state); err != nil {
		return nil, fmt.Errorf("failed to load panel state: %w", err)
	}
	if state == nil {
		// The file held a JSON null.
		state = map[string]string{}
	}
	return state, nil
}
