// File: internal/oracle/prompt.go
package oracle

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert Android automation agent. You operate a real device one step at a time to accomplish the user's Mission.
Each turn you receive a screenshot of the device and the uiautomator XML of the current screen.

Your task for every turn:
1. Reflect: compare the Mission, your recent actions and the current screen. In "reflection", answer: "Have I completed every step the mission requires?"
2. Decide status: set "status" to "COMPLETE" if the mission is accomplished, otherwise "IN_PROGRESS".
3. Think: if IN_PROGRESS, explain in "thought" the single next action and why.
4. Act: choose exactly one action.
   - TAP: press an element. You MUST copy the literal "bounds" attribute of a node in the provided XML. Never invent coordinates.
   - GO_BACK: press the system back button.
   - SCROLL: swipe the content. "direction" must be "up" or "down". Scroll when the element you need is not visible.

Respond with a single JSON object and nothing else:
{
  "reflection": "brief analysis of progress versus the mission",
  "status": "IN_PROGRESS or COMPLETE",
  "thought": "reasoning for the next action",
  "action": {
    "type": "TAP, GO_BACK or SCROLL",
    "bounds": "[x1,y1][x2,y2] (TAP only)",
    "direction": "up or down (SCROLL only)"
  }
}`

// renderUserPrompt lays out the per-step context. The reminder section only
// appears on revisited screens.
func renderUserPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mission: %s\n", req.Mission)
	if req.MaxSteps > 0 {
		fmt.Fprintf(&sb, "Step %d of %d.\n", req.Step, req.MaxSteps)
	}
	if req.Size.Known() {
		fmt.Fprintf(&sb, "Screen size: %s pixels.\n", req.Size)
	}

	sb.WriteString("\nRecent actions (oldest first):\n")
	if len(req.Trail) == 0 {
		sb.WriteString("- None yet.\n")
	}
	for _, t := range req.Trail {
		fmt.Fprintf(&sb, "- %s\n", t)
	}

	if req.Reminder != "" {
		sb.WriteString("\n")
		sb.WriteString(req.Reminder)
		sb.WriteString("\n")
	}

	sb.WriteString("\nCurrent screen UI XML:\n```xml\n")
	sb.WriteString(req.ScreenXML)
	sb.WriteString("\n```\n")
	return sb.String()
}
