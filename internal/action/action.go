// File: internal/action/action.go
package action

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Kind names an action variant as the oracle spells it.
type Kind string

const (
	KindTap    Kind = "TAP"
	KindGoBack Kind = "GO_BACK"
	KindScroll Kind = "SCROLL"
	// KindNone marks a step where nothing was attempted (mission completion).
	KindNone Kind = "NONE"
)

// Direction is a vertical scroll direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// State tracks an action through validation and execution.
type State string

const (
	StateProposed  State = "PROPOSED"
	StateValidated State = "VALIDATED"
	StateExecuted  State = "EXECUTED"
	StateRejected  State = "REJECTED"
)

// Action is the closed set of things the agent can do to the device.
// Only Tap, GoBack and Scroll implement it.
type Action interface {
	Kind() Kind
	Params() map[string]string
	sealed()
}

// Tap presses the center of an on-screen element.
type Tap struct {
	Bounds screen.Bounds
}

// GoBack presses the system back key.
type GoBack struct{}

// Scroll swipes the content vertically.
type Scroll struct {
	Direction Direction
}

func (Tap) Kind() Kind    { return KindTap }
func (GoBack) Kind() Kind { return KindGoBack }
func (Scroll) Kind() Kind { return KindScroll }

func (t Tap) Params() map[string]string    { return map[string]string{"bounds": t.Bounds.String()} }
func (GoBack) Params() map[string]string   { return nil }
func (s Scroll) Params() map[string]string { return map[string]string{"direction": string(s.Direction)} }

func (Tap) sealed()    {}
func (GoBack) sealed() {}
func (Scroll) sealed() {}

// Proposal is the raw, unvalidated action text returned by the oracle.
type Proposal struct {
	Type      string `json:"type"`
	Bounds    string `json:"bounds,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Params returns the non-empty proposal fields, for recording rejected attempts.
func (p Proposal) Params() map[string]string {
	out := map[string]string{}
	if p.Bounds != "" {
		out["bounds"] = p.Bounds
	}
	if p.Direction != "" {
		out["direction"] = p.Direction
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// KeycodeBack is Android's KEYCODE_BACK.
const KeycodeBack = 4

// Command is a device-ready instruction produced by validation.
type Command interface {
	// ShellArgs is the argument vector for `adb shell`.
	ShellArgs() []string
	String() string
}

// TapCommand taps a point in device coordinates.
type TapCommand struct {
	X, Y int
}

// KeyCommand sends a key event.
type KeyCommand struct {
	Code int
}

// SwipeCommand drags from (X1,Y1) to (X2,Y2).
type SwipeCommand struct {
	X1, Y1, X2, Y2 int
	Duration       time.Duration
}

func (c TapCommand) ShellArgs() []string {
	return []string{"input", "tap", strconv.Itoa(c.X), strconv.Itoa(c.Y)}
}

func (c KeyCommand) ShellArgs() []string {
	return []string{"input", "keyevent", strconv.Itoa(c.Code)}
}

func (c SwipeCommand) ShellArgs() []string {
	return []string{
		"input", "swipe",
		strconv.Itoa(c.X1), strconv.Itoa(c.Y1),
		strconv.Itoa(c.X2), strconv.Itoa(c.Y2),
		strconv.FormatInt(c.Duration.Milliseconds(), 10),
	}
}

func (c TapCommand) String() string { return fmt.Sprintf("tap (%d,%d)", c.X, c.Y) }
func (c KeyCommand) String() string { return fmt.Sprintf("keyevent %d", c.Code) }
func (c SwipeCommand) String() string {
	return fmt.Sprintf("swipe (%d,%d)->(%d,%d) %s", c.X1, c.Y1, c.X2, c.Y2, c.Duration)
}
