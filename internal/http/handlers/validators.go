package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
)

var registerOnce sync.Once

// RegisterValidators installs the enum tags used by request bodies on gin's
// validator. It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		tags := map[string]func(string) bool{
			"session_status": func(s string) bool { return live.Status(s).Valid() },
			"control_mode":   func(s string) bool { return live.ControlMode(s).Valid() },
			"chat_mode":      func(s string) bool { return live.ChatMode(s).Valid() },
			"play_state":     func(s string) bool { return live.PlayState(s).Valid() },
			"pause_reason":   func(s string) bool { return live.PauseReason(s).Valid() },
			"block_status":   func(s string) bool { return live.BlockStatus(s).Valid() },
			"plugin_type":    func(s string) bool { return learning.PluginType(s).Valid() },
		}
		for tag, valid := range tags {
			valid := valid
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return valid(fl.Field().String())
			})
		}
	})
}

// bindError turns a binding failure into a short client-facing message.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.New("invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min", "max", "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: invalid %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
