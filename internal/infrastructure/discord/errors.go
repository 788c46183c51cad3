package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/platform"
)

// notFoundCodes are the JSON error codes Discord returns for missing objects.
var notFoundCodes = map[int]bool{
	discordgo.ErrCodeUnknownChannel: true,
	discordgo.ErrCodeUnknownMessage: true,
	discordgo.ErrCodeUnknownMember:  true,
	discordgo.ErrCodeUnknownGuild:   true,
}

// translate maps REST failures onto the platform port's sentinel errors so
// callers can test them with errors.Is.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, platform.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound returns true if the error is a 404 or an unknown-object code.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && notFoundCodes[restErr.Message.Code] {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// IsMissingAccess returns true if the bot lacks permission for the request.
func IsMissingAccess(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}
