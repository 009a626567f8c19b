package autoplay

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/gonasi-backend/internal/domain/live"
)

//go:embed timing.yaml
var timingFS embed.FS

// fallback hold times used when the YAML table is missing or invalid
var fallbackHold = map[live.PlayState]time.Duration{
	live.PlayLobby:           15 * time.Second,
	live.PlayIntro:           8 * time.Second,
	live.PlayQuestionActive:  20 * time.Second,
	live.PlayQuestionLocked:  3 * time.Second,
	live.PlayQuestionResults: 6 * time.Second,
	live.PlayLeaderboard:     6 * time.Second,
	live.PlayIntermission:    5 * time.Second,
}

type yamlTiming struct {
	Timing  string         `yaml:"timing"`
	Version int            `yaml:"version"`
	States  map[string]int `yaml:"states"`
}

// Timing maps a play state to how long it is held before advancing.
type Timing struct {
	hold map[live.PlayState]time.Duration
}

// NewTiming builds a table from explicit durations. Non-positive entries are dropped.
func NewTiming(hold map[live.PlayState]time.Duration) Timing {
	out := make(map[live.PlayState]time.Duration, len(hold))
	for k, v := range hold {
		if v > 0 {
			out[k] = v
		}
	}
	return Timing{hold: out}
}

// DefaultTiming is the built-in table.
func DefaultTiming() Timing { return NewTiming(fallbackHold) }

// Hold returns the hold time of state and whether the timer advances it at all.
func (t Timing) Hold(state live.PlayState) (time.Duration, bool) {
	d, ok := t.hold[state]
	return d, ok && d > 0
}

// LoadTiming reads the table from path, or the embedded default when path is empty.
func LoadTiming(path string) (Timing, error) {
	var (
		data []byte
		err  error
	)
	if p := strings.TrimSpace(path); p != "" {
		data, err = os.ReadFile(p)
	} else {
		data, err = timingFS.ReadFile("timing.yaml")
	}
	if err != nil {
		return Timing{}, err
	}
	return ParseTiming(data)
}

func ParseTiming(data []byte) (Timing, error) {
	var spec yamlTiming
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Timing{}, err
	}
	if strings.TrimSpace(spec.Timing) != "autoplay" {
		return Timing{}, fmt.Errorf("unexpected timing table: %q", spec.Timing)
	}
	if len(spec.States) == 0 {
		return Timing{}, errors.New("no states defined")
	}
	hold := make(map[live.PlayState]time.Duration, len(spec.States))
	for name, secs := range spec.States {
		state, err := live.ParsePlayState(name)
		if err != nil {
			return Timing{}, err
		}
		if secs <= 0 {
			return Timing{}, fmt.Errorf("state %s: hold must be positive, got %d", state, secs)
		}
		hold[state] = time.Duration(secs) * time.Second
	}
	return Timing{hold: hold}, nil
}

// Next returns the state autoplay moves to from cur. pendingBlocks reports whether
// the session still has blocks that have not been played.
func Next(cur live.PlayState, pendingBlocks bool) (live.PlayState, bool) {
	switch cur {
	case live.PlayLobby:
		return live.PlayIntro, true
	case live.PlayIntro:
		return live.PlayQuestionActive, true
	case live.PlayQuestionActive:
		return live.PlayQuestionLocked, true
	case live.PlayQuestionLocked:
		return live.PlayQuestionResults, true
	case live.PlayQuestionResults:
		return live.PlayLeaderboard, true
	case live.PlayLeaderboard:
		if pendingBlocks {
			return live.PlayIntermission, true
		}
		return live.PlayFinalResults, true
	case live.PlayIntermission:
		return live.PlayQuestionActive, true
	case live.PlayPrizes, live.PlayFinalResults, live.PlayEnded:
		return "", false
	default:
		return "", false
	}
}
