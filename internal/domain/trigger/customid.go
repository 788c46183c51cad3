package trigger

import (
	"strings"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
)

// Component custom ids. They are persisted inside posted messages, so they
// must stay stable across releases.
const (
	CustomIDOpenArmedBranch   = "ticket_btn_braccio"
	CustomIDOpenInformational = "ticket_btn_info"
	CustomIDOpenGeneral       = "ticket_btn_general"
	CustomIDOpenFactional     = "ticket_btn_wl"
	CustomIDClose             = "ticket_close_now"

	CloseModalPrefix  = "ticket_close_reason:"
	CloseReasonField  = "reason"
	DownloadPrefix    = "transcript_dl:"
	PanelTextCommand  = "!ticketpanel"
	CommandPanel      = "ticketpanel"
	CommandAddUser    = "ticketadd"
	CommandRemoveUser = "ticketremove"
	CommandUserOption = "utente"
)

// Reason limits of the close form.
const (
	ReasonMinLength = 3
	ReasonMaxLength = 400
)

var openButtons = map[string]vo.Category{
	CustomIDOpenArmedBranch:   vo.CategoryArmedBranch,
	CustomIDOpenInformational: vo.CategoryInformational,
	CustomIDOpenGeneral:       vo.CategoryGeneral,
	CustomIDOpenFactional:     vo.CategoryFactional,
}

// CategoryForButton maps an open button to its category.
func CategoryForButton(customID string) (vo.Category, bool) {
	c, ok := openButtons[customID]
	return c, ok
}

// ButtonForCategory is the inverse of CategoryForButton.
func ButtonForCategory(c vo.Category) string {
	for id, cat := range openButtons {
		if cat == c {
			return id
		}
	}
	return ""
}

func CloseModalID(channelID string) string {
	return CloseModalPrefix + channelID
}

// ParseCloseModalID returns the channel a close form was opened for.
func ParseCloseModalID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, CloseModalPrefix) {
		return "", false
	}
	return strings.TrimPrefix(customID, CloseModalPrefix), true
}

func DownloadID(token string) string {
	return DownloadPrefix + token
}

func ParseDownloadID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, DownloadPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(customID, DownloadPrefix)
	return token, token != ""
}
