package realtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	SSEEventSessionStateChange SSEEvent = "session_state_change"
	SSEEventPlayStateChange    SSEEvent = "play_state_change"
	SSEEventBlockStateChange   SSEEvent = "block_state_change"
	SSEEventLessonProgress     SSEEvent = "lesson_progress"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

const liveSessionPrefix = "live_session:"

// LiveSessionChannel is the channel every participant of a live session listens on.
func LiveSessionChannel(sessionID uuid.UUID) string {
	return liveSessionPrefix + sessionID.String()
}

// UserChannel carries events addressed to a single user.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ParseLiveSessionChannel returns the session id of a live session channel.
func ParseLiveSessionChannel(channel string) (uuid.UUID, error) {
	channel = strings.TrimSpace(channel)
	if !strings.HasPrefix(channel, liveSessionPrefix) {
		return uuid.Nil, fmt.Errorf("not a live session channel: %q", channel)
	}
	return uuid.Parse(strings.TrimPrefix(channel, liveSessionPrefix))
}
