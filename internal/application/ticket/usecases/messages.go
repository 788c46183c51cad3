package usecases

import (
	"fmt"
	"strings"
	"time"

	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/ticket"
	"github.com/sportello-bot/sportello/internal/domain/trigger"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
	"github.com/sportello-bot/sportello/internal/shared/utils/logutil"
)

const (
	ticketColor = 0xed4245

	MsgOpenInProgress    = "⏳ Ticket già in creazione, attendi..."
	MsgOpenCreating      = "⏳ Sto creando il ticket..."
	MsgComingSoon        = "❓・Prossimamente..."
	MsgNotTicketChannel  = "Questa azione è valida solo nei canali ticket."
	MsgWrongTarget       = "Questo ticket non corrisponde alla richiesta di chiusura."
	MsgAlreadyClosing    = "⏳ Chiusura già in corso..."
	MsgNotStaff          = "Non hai il ruolo staff."
	MsgUseInTicket       = "Usa questo comando dentro un canale ticket."
	MsgTranscriptMissing = "Transcript non disponibile o scaduto."
	MsgInternalError     = "Errore interno. Controlla console/log."

	closeReasonDefault = "Nessuna motivazione fornita."
	closeReasonMax     = 900
	deleteReason       = "Chiusura Ticket (transcript allegato)"
	createReason       = "Apertura Ticket"
)

func MsgAlreadyOpen(channelID string) string {
	return fmt.Sprintf("Hai già un ticket aperto: <#%s>", channelID)
}

func MsgOpened(channelID string) string {
	return fmt.Sprintf("Ticket Aperto: <#%s>", channelID)
}

func MsgCloseForbidden(closeRoleID string) string {
	return fmt.Sprintf("Non hai i permessi per chiudere i ticket.\nServe il ruolo <@&%s> oppure permesso Amministratore.", closeRoleID)
}

func MsgMemberAdded(userID string) string {
	return fmt.Sprintf("✅ Utente Aggiunto: <@%s>", userID)
}

func MsgMemberRemoved(userID string) string {
	return fmt.Sprintf("❌ Utente Rimosso: <@%s>", userID)
}

var italianWeekdays = map[time.Weekday]string{
	time.Monday:    "Lunedì",
	time.Tuesday:   "Martedì",
	time.Wednesday: "Mercoledì",
	time.Thursday:  "Giovedì",
	time.Friday:    "Venerdì",
	time.Saturday:  "Sabato",
	time.Sunday:    "Domenica",
}

// FormatSchedule renders support hours one line per run of consecutive days
// sharing a window, Monday first: "Lunedì - Venerdì: 12:00 - 00:00".
func FormatSchedule(s biztime.Schedule) []string {
	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	var lines []string
	for i := 0; i < len(order); {
		w, ok := s[order[i]]
		if !ok {
			i++
			continue
		}
		j := i
		for j+1 < len(order) {
			next, ok := s[order[j+1]]
			if !ok || next != w {
				break
			}
			j++
		}
		days := italianWeekdays[order[i]]
		if j > i {
			days += " - " + italianWeekdays[order[j]]
		}
		lines = append(lines, fmt.Sprintf("%s: %s - %s", days, clock(w.Start), clock(w.End)))
		i = j + 1
	}
	return lines
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60)
}

// MsgOutsideHours is the reply when the support desk is closed.
func MsgOutsideHours(s biztime.Schedule, bypassRoleID string) string {
	var b strings.Builder
	b.WriteString("**Al momento non è possibile aprire nuovi ticket.**\n")
	b.WriteString("Orari di Supporto:\n")
	for _, line := range FormatSchedule(s) {
		b.WriteString("> " + line + "\n")
	}
	if bypassRoleID != "" {
		fmt.Fprintf(&b, "\nPer aprire ticket anche al di fuori degli orari di supporto acquista il ruolo <@&%s>.", bypassRoleID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func welcomeMessage(t *ticket.Ticket, guildName, thumbnailURL string) platform.MessageSend {
	return platform.MessageSend{
		Content: fmt.Sprintf("Benvenuto <@%s> nel Sistema Ticket della **%s**", t.OwnerID(), guildName),
		Embeds: []platform.Embed{{
			Title:        "Benvenuto nel Sistema Ticket",
			Description:  "Esponi il Tuo Problema Verrai Assisstito a Breve in Base alla Categoria del Ticket Selezionata.",
			Color:        ticketColor,
			ThumbnailURL: thumbnailURL,
		}},
		Buttons: []platform.Button{{
			CustomID: trigger.CustomIDClose,
			Label:    "🔐・Chiudi Ticket",
			Style:    platform.ButtonDanger,
		}},
		MentionUsers: []string{t.OwnerID()},
	}
}

func closeAnnouncement(staffName, reason string) platform.MessageSend {
	return platform.MessageSend{
		Content: fmt.Sprintf("%s: Chiusura Ticket in Corso... | **Motivazione**: %s", staffName, reason),
	}
}

// normalizeReason trims the reason, applies the default and caps its length
// for the audit record.
func normalizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return closeReasonDefault
	}
	return logutil.TruncateRunes(reason, closeReasonMax)
}

// AuditSnapshot is what the audit record describes.
type AuditSnapshot struct {
	Ticket   *ticket.Ticket
	ClosedBy string
	Reason   string
	ClosedAt time.Time
}

func auditRecord(s AuditSnapshot, token, publicBaseURL string) platform.MessageSend {
	msg := platform.MessageSend{
		Embeds: []platform.Embed{{
			Title: "Ticket Chiuso",
			Color: ticketColor,
			Fields: []platform.EmbedField{
				{Name: "Ticket", Value: fmt.Sprintf("**Ticket:** 🎫 | `%s`", s.Ticket.Name())},
				{Name: "Aperto da", Value: "**Aperto da:** " + s.Ticket.OwnerMention()},
				{Name: "Concluso da", Value: fmt.Sprintf("**Concluso da:** <@%s>", s.ClosedBy)},
				{Name: "Categoria", Value: "**Categoria:** " + s.Ticket.Category().Label()},
				{Name: "Motivazione", Value: "**Motivazione:** " + normalizeReason(s.Reason)},
			},
			Footer: "LOG Ticket - Oggi alle " + biztime.FormatClock(s.ClosedAt),
		}},
	}
	if token == "" {
		return msg
	}
	msg.Buttons = append(msg.Buttons, platform.Button{
		CustomID: trigger.DownloadID(token),
		Label:    "⬇️・Scarica Transcript",
		Style:    platform.ButtonSecondary,
	})
	if publicBaseURL != "" {
		msg.Buttons = append(msg.Buttons, platform.Button{
			Label: "🌐・Apri Transcript",
			Style: platform.ButtonLink,
			URL:   strings.TrimRight(publicBaseURL, "/") + "/transcripts/" + token,
		})
	}
	return msg
}
