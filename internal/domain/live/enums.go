package live

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

var Statuses = []Status{StatusDraft, StatusWaiting, StatusActive, StatusPaused, StatusEnded}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusWaiting, StatusActive, StatusPaused, StatusEnded:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool { return s == StatusEnded }

type ControlMode string

const (
	ControlAutoplay   ControlMode = "autoplay"
	ControlHostDriven ControlMode = "host_driven"
	ControlHybrid     ControlMode = "hybrid"
)

var ControlModes = []ControlMode{ControlAutoplay, ControlHostDriven, ControlHybrid}

func (m ControlMode) Valid() bool {
	switch m {
	case ControlAutoplay, ControlHostDriven, ControlHybrid:
		return true
	default:
		return false
	}
}

// TimerDriven reports whether play state may advance without the host.
func (m ControlMode) TimerDriven() bool {
	switch m {
	case ControlAutoplay, ControlHybrid:
		return true
	case ControlHostDriven:
		return false
	default:
		return false
	}
}

type ChatMode string

const (
	ChatOpen          ChatMode = "open"
	ChatReactionsOnly ChatMode = "reactions_only"
	ChatHostOnly      ChatMode = "host_only"
	ChatMuted         ChatMode = "muted"
)

var ChatModes = []ChatMode{ChatOpen, ChatReactionsOnly, ChatHostOnly, ChatMuted}

func (m ChatMode) Valid() bool {
	switch m {
	case ChatOpen, ChatReactionsOnly, ChatHostOnly, ChatMuted:
		return true
	default:
		return false
	}
}

type PlayState string

const (
	PlayLobby           PlayState = "lobby"
	PlayIntro           PlayState = "intro"
	PlayQuestionActive  PlayState = "question_active"
	PlayQuestionLocked  PlayState = "question_locked"
	PlayQuestionResults PlayState = "question_results"
	PlayLeaderboard     PlayState = "leaderboard"
	PlayIntermission    PlayState = "intermission"
	PlayPrizes          PlayState = "prizes"
	PlayFinalResults    PlayState = "final_results"
	PlayEnded           PlayState = "ended"
)

var PlayStates = []PlayState{
	PlayLobby,
	PlayIntro,
	PlayQuestionActive,
	PlayQuestionLocked,
	PlayQuestionResults,
	PlayLeaderboard,
	PlayIntermission,
	PlayPrizes,
	PlayFinalResults,
	PlayEnded,
}

func (p PlayState) Valid() bool {
	switch p {
	case PlayLobby, PlayIntro, PlayQuestionActive, PlayQuestionLocked, PlayQuestionResults,
		PlayLeaderboard, PlayIntermission, PlayPrizes, PlayFinalResults, PlayEnded:
		return true
	default:
		return false
	}
}

type PauseReason string

const (
	PauseHostHold       PauseReason = "host_hold"
	PauseTechnicalIssue PauseReason = "technical_issue"
	PauseModeration     PauseReason = "moderation"
	PauseSystem         PauseReason = "system"
)

var PauseReasons = []PauseReason{PauseHostHold, PauseTechnicalIssue, PauseModeration, PauseSystem}

func (r PauseReason) Valid() bool {
	switch r {
	case PauseHostHold, PauseTechnicalIssue, PauseModeration, PauseSystem:
		return true
	default:
		return false
	}
}

type BlockStatus string

const (
	BlockPending BlockStatus = "pending"
	BlockActive  BlockStatus = "active"
	BlockClosed  BlockStatus = "closed"
	BlockSkipped BlockStatus = "skipped"
)

var BlockStatuses = []BlockStatus{BlockPending, BlockActive, BlockClosed, BlockSkipped}

func (s BlockStatus) Valid() bool {
	switch s {
	case BlockPending, BlockActive, BlockClosed, BlockSkipped:
		return true
	default:
		return false
	}
}

type enum interface {
	~string
	Valid() bool
}

func parse[T enum](kind, raw string) (T, error) {
	v := T(strings.TrimSpace(strings.ToLower(raw)))
	if !v.Valid() {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", kind, raw)
	}
	return v, nil
}

func ParseStatus(raw string) (Status, error)         { return parse[Status]("status", raw) }
func ParseControlMode(raw string) (ControlMode, error) { return parse[ControlMode]("control mode", raw) }
func ParseChatMode(raw string) (ChatMode, error)     { return parse[ChatMode]("chat mode", raw) }
func ParsePlayState(raw string) (PlayState, error)   { return parse[PlayState]("play state", raw) }
func ParsePauseReason(raw string) (PauseReason, error) {
	return parse[PauseReason]("pause reason", raw)
}
func ParseBlockStatus(raw string) (BlockStatus, error) { return parse[BlockStatus]("block status", raw) }
