// File: internal/action/validate.go
package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// ErrorCode classifies why a proposal was rejected.
type ErrorCode string

const (
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION_TYPE"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrCodeElementNotFound   ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeOutOfBounds       ErrorCode = "OUT_OF_BOUNDS"
)

// Rejection is returned when a proposal cannot become a command.
// It is recovered locally by the loop and never ends a run.
type Rejection struct {
	Code   ErrorCode
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

func reject(code ErrorCode, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Validated is a proposal that passed validation, ready for the actuator.
type Validated struct {
	Action  Action
	Command Command
	// Summary is a short human description, e.g. "tap element with text 'Wi-Fi'".
	Summary string
}

// DefaultSwipeDuration matches a deliberate, non-fling scroll.
const DefaultSwipeDuration = 500 * time.Millisecond

// Validator turns proposals into device commands against the current screen.
type Validator struct {
	SwipeDuration time.Duration
}

// Validate checks p against the default Validator.
func Validate(p Proposal, h *screen.Hierarchy, size screen.Size) (Validated, error) {
	return Validator{SwipeDuration: DefaultSwipeDuration}.Validate(p, h, size)
}

// Validate resolves p into a device-ready command or returns a *Rejection.
func (v Validator) Validate(p Proposal, h *screen.Hierarchy, size screen.Size) (Validated, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(p.Type))) {
	case KindTap:
		return v.validateTap(p, h, size)
	case KindGoBack:
		return Validated{
			Action:  GoBack{},
			Command: KeyCommand{Code: KeycodeBack},
			Summary: "go back",
		}, nil
	case KindScroll:
		return v.validateScroll(p, h, size)
	default:
		return Validated{}, reject(ErrCodeUnknownAction, "unknown action type %q", p.Type)
	}
}

func (v Validator) validateTap(p Proposal, h *screen.Hierarchy, size screen.Size) (Validated, error) {
	if strings.TrimSpace(p.Bounds) == "" {
		return Validated{}, reject(ErrCodeInvalidParameters, "TAP requires bounds")
	}
	b, err := screen.ParseBounds(p.Bounds)
	if err != nil {
		return Validated{}, reject(ErrCodeInvalidParameters, "%v", err)
	}

	candidates := h.FindByBounds(b)
	if len(candidates) == 0 {
		return Validated{}, reject(ErrCodeElementNotFound, "no element with bounds %s on the current screen", b)
	}
	var target *screen.Node
	for _, n := range candidates {
		if n.Interactive() {
			target = n
			break
		}
	}
	if target == nil {
		return Validated{}, reject(ErrCodeElementNotFound, "element at %s is not interactive", b)
	}

	x, y := b.Center()
	if !size.Contains(x, y) {
		return Validated{}, reject(ErrCodeOutOfBounds, "center (%d,%d) of %s is outside the %s screen", x, y, b, size)
	}
	return Validated{
		Action:  Tap{Bounds: b},
		Command: TapCommand{X: x, Y: y},
		Summary: "tap " + target.Describe(),
	}, nil
}

func (v Validator) validateScroll(p Proposal, h *screen.Hierarchy, size screen.Size) (Validated, error) {
	dir := Direction(strings.ToLower(strings.TrimSpace(p.Direction)))
	if dir != DirectionUp && dir != DirectionDown {
		return Validated{}, reject(ErrCodeInvalidParameters, "unsupported scroll direction %q (want up or down)", p.Direction)
	}
	if !size.Known() {
		size = sizeFromHierarchy(h)
	}
	if !size.Known() {
		return Validated{}, reject(ErrCodeInvalidParameters, "screen size unknown, cannot scroll")
	}

	duration := v.SwipeDuration
	if duration <= 0 {
		duration = DefaultSwipeDuration
	}
	x := size.Width / 2
	low, high := size.Height*8/10, size.Height*2/10
	cmd := SwipeCommand{X1: x, Y1: low, X2: x, Y2: high, Duration: duration}
	if dir == DirectionUp {
		cmd.Y1, cmd.Y2 = high, low
	}
	return Validated{
		Action:  Scroll{Direction: dir},
		Command: cmd,
		Summary: "scroll " + string(dir),
	}, nil
}

// sizeFromHierarchy estimates the display from the widest root bounds.
func sizeFromHierarchy(h *screen.Hierarchy) screen.Size {
	var s screen.Size
	if h == nil {
		return s
	}
	for _, r := range h.Roots {
		if r.HasBounds {
			if r.Bounds.Right > s.Width {
				s.Width = r.Bounds.Right
			}
			if r.Bounds.Bottom > s.Height {
				s.Height = r.Bounds.Bottom
			}
		}
	}
	return s
}
