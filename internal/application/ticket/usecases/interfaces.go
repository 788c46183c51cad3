package usecases

import (
	"time"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
)

// Settings are the deployment values the ticket lifecycle reads.
type Settings struct {
	StaffRoleID     string
	CloseRoleID     string
	BypassRoleID    string
	LogChannelID    string
	CategoryParents map[vo.Category]string

	OpenLockTTL  time.Duration
	CloseLockTTL time.Duration
	AuditBucket  time.Duration
	CloseGrace   time.Duration

	SupportHours  biztime.Schedule
	ThumbnailURL  string
	PublicBaseURL string
}

// ParentFor returns the parent category channel for c, or "" to create the
// ticket at the guild root.
func (s Settings) ParentFor(c vo.Category) string {
	if s.CategoryParents == nil {
		return ""
	}
	return s.CategoryParents[c]
}
