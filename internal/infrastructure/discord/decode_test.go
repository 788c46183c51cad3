package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/domain/trigger"
)

var fixedNow = time.Date(2026, 3, 2, 14, 30, 15, 0, time.UTC)

func newTestDecoder() (*Decoder, *fakeInteractionAPI) {
	api := &fakeInteractionAPI{}
	d := NewDecoder(api, &fakeMessageAPI{})
	d.now = func() time.Time { return fixedNow }
	return d, api
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "user" + id}, Roles: roles}
}

func interaction(typ discordgo.InteractionType, data discordgo.InteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "evt-1",
		Type:      typ,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    member("42", "r-staff"),
		Data:      data,
	}}
}

func TestDecoder_Interaction_Components(t *testing.T) {
	tests := []struct {
		name     string
		customID string
		check    func(t *testing.T, tr trigger.Trigger)
	}{
		{
			name:     "open button",
			customID: trigger.CustomIDOpenInformational,
			check: func(t *testing.T, tr trigger.Trigger) {
				open, ok := tr.(trigger.OpenRequest)
				require.True(t, ok)
				assert.Equal(t, vo.CategoryInformational, open.Category)
			},
		},
		{
			name:     "close button",
			customID: trigger.CustomIDClose,
			check: func(t *testing.T, tr trigger.Trigger) {
				_, ok := tr.(trigger.CloseIntent)
				assert.True(t, ok)
			},
		},
		{
			name:     "download button",
			customID: trigger.DownloadID("tok123"),
			check: func(t *testing.T, tr trigger.Trigger) {
				dl, ok := tr.(trigger.DownloadRequest)
				require.True(t, ok)
				assert.Equal(t, "tok123", dl.Token)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDecoder()
			tr, ok := d.Interaction(interaction(discordgo.InteractionMessageComponent, discordgo.MessageComponentInteractionData{CustomID: tt.customID}))
			require.True(t, ok)
			tt.check(t, tr)

			meta := tr.Metadata()
			assert.Equal(t, "evt-1", meta.EventID)
			assert.Equal(t, "g1", meta.GuildID)
			assert.Equal(t, "c1", meta.ChannelID)
			assert.Equal(t, "42", meta.Actor.UserID)
			assert.Equal(t, []string{"r-staff"}, meta.Actor.RoleIDs)
			assert.Equal(t, fixedNow, meta.ReceivedAt)
		})
	}
}

func TestDecoder_Interaction_UnknownComponent(t *testing.T) {
	d, _ := newTestDecoder()
	_, ok := d.Interaction(interaction(discordgo.InteractionMessageComponent, discordgo.MessageComponentInteractionData{CustomID: "something_else"}))
	assert.False(t, ok)
}

func TestDecoder_Interaction_Commands(t *testing.T) {
	userOpt := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: trigger.CommandUserOption, Type: discordgo.ApplicationCommandOptionUser, Value: "77"},
	}

	d, _ := newTestDecoder()

	tr, ok := d.Interaction(interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{Name: trigger.CommandPanel}))
	require.True(t, ok)
	panel, ok := tr.(trigger.PanelShowRequest)
	require.True(t, ok)
	assert.Equal(t, trigger.PanelFromCommand, panel.Source)

	tr, ok = d.Interaction(interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{Name: trigger.CommandAddUser, Options: userOpt}))
	require.True(t, ok)
	add, ok := tr.(trigger.MemberAddRequest)
	require.True(t, ok)
	assert.Equal(t, "77", add.TargetUserID)

	tr, ok = d.Interaction(interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{Name: trigger.CommandRemoveUser, Options: userOpt}))
	require.True(t, ok)
	remove, ok := tr.(trigger.MemberRemoveRequest)
	require.True(t, ok)
	assert.Equal(t, "77", remove.TargetUserID)

	_, ok = d.Interaction(interaction(discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{Name: trigger.CommandAddUser}))
	assert.False(t, ok, "missing user option")
}

func TestDecoder_Interaction_CloseModal(t *testing.T) {
	d, _ := newTestDecoder()
	data := discordgo.ModalSubmitInteractionData{
		CustomID: trigger.CloseModalID("c1"),
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: trigger.CloseReasonField, Value: "Risolto"},
			}},
		},
	}

	tr, ok := d.Interaction(interaction(discordgo.InteractionModalSubmit, data))
	require.True(t, ok)
	req, ok := tr.(trigger.CloseRequest)
	require.True(t, ok)
	assert.Equal(t, "c1", req.TargetChannelID)
	assert.Equal(t, "Risolto", req.Reason)
}

func TestDecoder_Interaction_AdministratorAndDM(t *testing.T) {
	d, _ := newTestDecoder()

	ic := interaction(discordgo.InteractionMessageComponent, discordgo.MessageComponentInteractionData{CustomID: trigger.CustomIDClose})
	ic.Member.Permissions = discordgo.PermissionAdministrator
	tr, ok := d.Interaction(ic)
	require.True(t, ok)
	assert.True(t, tr.Metadata().Actor.Administrator)

	dm := interaction(discordgo.InteractionMessageComponent, discordgo.MessageComponentInteractionData{CustomID: trigger.CustomIDClose})
	dm.GuildID = ""
	dm.Member = nil
	_, ok = d.Interaction(dm)
	assert.False(t, ok)
}

func TestDecoder_Message(t *testing.T) {
	tests := []struct {
		name   string
		msg    *discordgo.Message
		wantOK bool
	}{
		{
			name:   "panel text command",
			msg:    &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Content: "!ticketpanel", Author: &discordgo.User{ID: "42"}, Member: &discordgo.Member{Roles: []string{"r-staff"}}},
			wantOK: true,
		},
		{
			name: "other text",
			msg:  &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Content: "ciao", Author: &discordgo.User{ID: "42"}},
		},
		{
			name: "bot author",
			msg:  &discordgo.Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Content: "!ticketpanel", Author: &discordgo.User{ID: "1", Bot: true}},
		},
		{
			name: "direct message",
			msg:  &discordgo.Message{ID: "m1", ChannelID: "c1", Content: "!ticketpanel", Author: &discordgo.User{ID: "42"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDecoder()
			tr, ok := d.Message(&discordgo.MessageCreate{Message: tt.msg})
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			req, isPanel := tr.(trigger.PanelShowRequest)
			require.True(t, isPanel)
			assert.Equal(t, trigger.PanelFromText, req.Source)
			assert.Equal(t, "m1", req.EventID)
			assert.Equal(t, []string{"r-staff"}, req.Actor.RoleIDs)
		})
	}
}

func TestDecoder_MemberEvents(t *testing.T) {
	d, _ := newTestDecoder()
	joinedAt := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	m := member("42")
	m.GuildID = "g1"
	m.JoinedAt = joinedAt
	tr, ok := d.MemberAdd(&discordgo.GuildMemberAdd{Member: m})
	require.True(t, ok)
	joined, ok := tr.(trigger.MemberJoined)
	require.True(t, ok)
	assert.Equal(t, "42", joined.UserID)
	assert.Equal(t, "user42", joined.Username)
	assert.Equal(t, "join:g1:42:1772460000", joined.EventID)

	tr, ok = d.MemberRemove(&discordgo.GuildMemberRemove{Member: m})
	require.True(t, ok)
	left, ok := tr.(trigger.MemberLeft)
	require.True(t, ok)
	assert.Equal(t, "leave:g1:42:1772461800", left.EventID)

	bot := member("1")
	bot.User.Bot = true
	_, ok = d.MemberAdd(&discordgo.GuildMemberAdd{Member: bot})
	assert.False(t, ok)
}
