package usecases

import (
	"strings"

	"github.com/sportello-bot/sportello/internal/domain/platform"
	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/domain/trigger"
)

const (
	panelColor = 0xed4245

	MsgPanelSent       = "Pannello ticket inviato."
	MsgPanelInProgress = "⏳ Operazione in corso..."
	MsgPanelForbidden  = "Non hai il ruolo staff."
)

// Settings are the deployment values the panel reads.
type Settings struct {
	BannerURL    string
	ThumbnailURL string
	// HoursLines is the rendered support schedule, one line per run of days.
	HoursLines []string
}

var buttonStyles = map[vo.Category]platform.ButtonStyle{
	vo.CategoryArmedBranch:   platform.ButtonPrimary,
	vo.CategoryInformational: platform.ButtonDanger,
	vo.CategoryGeneral:       platform.ButtonSecondary,
	vo.CategoryFactional:     platform.ButtonSuccess,
}

// panelMessage builds the control panel: one open button per category, the
// non-openable ones disabled.
func panelMessage(s Settings) platform.MessageSend {
	var desc strings.Builder
	desc.WriteString("Seleziona una delle Seguenti Opzioni...")
	if len(s.HoursLines) > 0 {
		desc.WriteString("\n\n**Orari di Supporto:**")
		for _, line := range s.HoursLines {
			desc.WriteString("\n> " + line)
		}
	}

	buttons := make([]platform.Button, 0, len(vo.All()))
	for _, c := range vo.All() {
		buttons = append(buttons, platform.Button{
			CustomID: trigger.ButtonForCategory(c),
			Label:    c.Emoji() + "・Ticket " + c.Label(),
			Style:    buttonStyles[c],
			Disabled: !c.IsOpenable(),
		})
	}

	return platform.MessageSend{
		Embeds: []platform.Embed{{
			Title:        "Ticket Fazione",
			Description:  desc.String(),
			Color:        panelColor,
			ImageURL:     s.BannerURL,
			ThumbnailURL: s.ThumbnailURL,
		}},
		Buttons: buttons,
	}
}
