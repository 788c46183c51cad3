// Package testutil provides in-memory implementations of the application
// ports for use-case tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sportello-bot/sportello/internal/domain/panel"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
)

// Role ids granted by RoleChecker.
const (
	GuildID    = "100"
	StaffRole  = "r-staff"
	CloseRole  = "r-close"
	BypassRole = "r-bypass"
	BotUserID  = "bot"
)

// MockPlatform is an in-memory guild implementing platform.Platform.
type MockPlatform struct {
	mu sync.Mutex

	guildName string
	channels  map[string]*platform.Channel
	messages  map[string][]platform.Message
	sent      map[string][]platform.MessageSend
	nextID    int

	createCalls []platform.CreateChannelRequest
	deleted     []string
	overwrites  map[string]map[string]platform.Permission
	roles       []string

	// Error injection for testing
	createDelay time.Duration
	createErr   func(req platform.CreateChannelRequest) error
	sendErr     func(channelID string) error
	deleteErr   error
	roleErr     error
}

// NewMockPlatform creates an empty guild named "Fazione Test".
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		guildName:  "Fazione Test",
		channels:   make(map[string]*platform.Channel),
		messages:   make(map[string][]platform.Message),
		sent:       make(map[string][]platform.MessageSend),
		overwrites: make(map[string]map[string]platform.Permission),
		nextID:     1000,
	}
}

func (m *MockPlatform) id() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

// AddChannel creates a text channel in GuildID and returns its id.
func (m *MockPlatform) AddChannel(name, topic string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.channels[id] = &platform.Channel{ID: id, GuildID: GuildID, Name: name, Topic: topic, Text: true}
	return id
}

// AddForeignMessage posts a message authored by someone other than the bot.
func (m *MockPlatform) AddForeignMessage(channelID, authorID, content string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := platform.Message{ID: m.id(), ChannelID: channelID, AuthorID: authorID, Content: content, Timestamp: time.Now()}
	m.messages[channelID] = append(m.messages[channelID], msg)
	return msg.ID
}

// RemoveChannel makes channelID disappear, as if deleted by hand.
func (m *MockPlatform) RemoveChannel(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, channelID)
	delete(m.messages, channelID)
}

func (m *MockPlatform) SetCreateDelay(d time.Duration) {
	m.mu.Lock()
	m.createDelay = d
	m.mu.Unlock()
}

func (m *MockPlatform) SetCreateErr(fn func(req platform.CreateChannelRequest) error) {
	m.mu.Lock()
	m.createErr = fn
	m.mu.Unlock()
}

func (m *MockPlatform) SetSendErr(fn func(channelID string) error) {
	m.mu.Lock()
	m.sendErr = fn
	m.mu.Unlock()
}

func (m *MockPlatform) SetDeleteErr(err error) {
	m.mu.Lock()
	m.deleteErr = err
	m.mu.Unlock()
}

func (m *MockPlatform) SetRoleErr(err error) {
	m.mu.Lock()
	m.roleErr = err
	m.mu.Unlock()
}

// SentTo returns every message sent to channelID, in order.
func (m *MockPlatform) SentTo(channelID string) []platform.MessageSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]platform.MessageSend(nil), m.sent[channelID]...)
}

// Messages returns the current contents of channelID.
func (m *MockPlatform) Messages(channelID string) []platform.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]platform.Message(nil), m.messages[channelID]...)
}

func (m *MockPlatform) DeletedChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func (m *MockPlatform) CreateCalls() []platform.CreateChannelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]platform.CreateChannelRequest(nil), m.createCalls...)
}

// Overwrite returns the member overwrite of userID on channelID.
func (m *MockPlatform) Overwrite(channelID, userID string) (platform.Permission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.overwrites[channelID][userID]
	return p, ok
}

// AssignedRoles lists "guild:user:role" for every AssignRole call.
func (m *MockPlatform) AssignedRoles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.roles...)
}

func (m *MockPlatform) BotUserID() string { return BotUserID }

func (m *MockPlatform) GuildName(context.Context, string) (string, error) {
	return m.guildName, nil
}

func (m *MockPlatform) GuildChannels(_ context.Context, guildID string) ([]platform.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]platform.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		if ch.GuildID == guildID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockPlatform) Channel(_ context.Context, channelID string) (*platform.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	c := *ch
	return &c, nil
}

func (m *MockPlatform) CreateTextChannel(_ context.Context, req platform.CreateChannelRequest) (*platform.Channel, error) {
	m.mu.Lock()
	delay := m.createDelay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, req)
	if m.createErr != nil {
		if err := m.createErr(req); err != nil {
			return nil, err
		}
	}
	id := m.id()
	ch := &platform.Channel{ID: id, GuildID: req.GuildID, Name: req.Name, Topic: req.Topic, ParentID: req.ParentID, Text: true}
	m.channels[id] = ch
	c := *ch
	return &c, nil
}

func (m *MockPlatform) DeleteChannel(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(m.channels, channelID)
	m.deleted = append(m.deleted, channelID)
	return nil
}

func (m *MockPlatform) SetMemberOverwrite(_ context.Context, channelID, userID string, allow platform.Permission, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overwrites[channelID] == nil {
		m.overwrites[channelID] = make(map[string]platform.Permission)
	}
	m.overwrites[channelID][userID] = allow
	return nil
}

func (m *MockPlatform) RemoveMemberOverwrite(_ context.Context, channelID, userID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overwrites[channelID], userID)
	return nil
}

func (m *MockPlatform) SendMessage(_ context.Context, channelID string, msg platform.MessageSend) (*platform.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		if err := m.sendErr(channelID); err != nil {
			return nil, err
		}
	}
	out := platform.Message{
		ID:        m.id(),
		ChannelID: channelID,
		AuthorID:  BotUserID,
		AuthorBot: true,
		Content:   msg.Content,
		Embeds:    msg.Embeds,
		Timestamp: time.Now(),
	}
	m.messages[channelID] = append(m.messages[channelID], out)
	m.sent[channelID] = append(m.sent[channelID], msg)
	return &out, nil
}

func (m *MockPlatform) EditMessage(_ context.Context, channelID, messageID string, msg platform.MessageSend) (*platform.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.messages[channelID] {
		if existing.ID == messageID {
			m.messages[channelID][i].Content = msg.Content
			m.messages[channelID][i].Embeds = msg.Embeds
			out := m.messages[channelID][i]
			return &out, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (m *MockPlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[channelID]
	for i, existing := range msgs {
		if existing.ID == messageID {
			m.messages[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			return nil
		}
	}
	return platform.ErrNotFound
}

func (m *MockPlatform) GetMessage(_ context.Context, channelID, messageID string) (*platform.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.messages[channelID] {
		if existing.ID == messageID {
			out := existing
			return &out, nil
		}
	}
	return nil, platform.ErrNotFound
}

// PinMessage mimics the platform by posting a pin notice.
func (m *MockPlatform) PinMessage(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[channelID] = append(m.messages[channelID], platform.Message{
		ID:        m.id(),
		ChannelID: channelID,
		PinNotice: true,
		Timestamp: time.Now(),
	})
	return nil
}

func (m *MockPlatform) RecentMessages(_ context.Context, channelID string, limit int) ([]platform.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]platform.Message(nil), msgs...), nil
}

func (m *MockPlatform) ChannelHistory(_ context.Context, channelID string) ([]platform.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]platform.Message(nil), m.messages[channelID]...), nil
}

func (m *MockPlatform) AssignRole(_ context.Context, guildID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleErr != nil {
		return m.roleErr
	}
	m.roles = append(m.roles, fmt.Sprintf("%s:%s:%s", guildID, userID, roleID))
	return nil
}

// RoleChecker grants by role the way the casbin policy does.
type RoleChecker struct {
	CanFunc func(actor permission.Actor, resource permission.Resource, action permission.Action) (bool, error)
}

func (c *RoleChecker) Can(actor permission.Actor, resource permission.Resource, action permission.Action) (bool, error) {
	if c.CanFunc != nil {
		return c.CanFunc(actor, resource, action)
	}
	if actor.Administrator {
		return true, nil
	}
	switch action {
	case permission.ActionClose:
		return actor.HasRole(CloseRole), nil
	case permission.ActionManage, permission.ActionSend:
		return actor.HasRole(StaffRole), nil
	case permission.ActionBypassHours:
		return actor.HasRole(BypassRole), nil
	}
	return false, nil
}

// StaffActor carries both the staff and the close role.
func StaffActor(userID string) permission.Actor {
	return permission.Actor{UserID: userID, Username: "staff" + userID, RoleIDs: []string{StaffRole, CloseRole}}
}

func UserActor(userID, username string) permission.Actor {
	return permission.Actor{UserID: userID, Username: username}
}

// MockPanelRepository keeps panel records in memory.
type MockPanelRepository struct {
	mu      sync.Mutex
	records map[string]panel.Record
	saveErr error
}

func NewMockPanelRepository() *MockPanelRepository {
	return &MockPanelRepository{records: make(map[string]panel.Record)}
}

func (r *MockPanelRepository) SetSaveErr(err error) {
	r.mu.Lock()
	r.saveErr = err
	r.mu.Unlock()
}

func (r *MockPanelRepository) Find(_ context.Context, guildID, channelID string) (*panel.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[panel.Key(guildID, channelID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MockPanelRepository) Save(_ context.Context, record panel.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[record.Key()] = record
	return nil
}

func (r *MockPanelRepository) Delete(_ context.Context, guildID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, panel.Key(guildID, channelID))
	return nil
}

func (r *MockPanelRepository) List(_ context.Context) ([]panel.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]panel.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}
