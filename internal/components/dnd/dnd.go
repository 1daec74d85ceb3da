// Package dnd implements a dice roller for playing tabletop games over
// chat. Rolls use the usual NdM notation with optional flat modifiers,
// e.g. "1d20+3d6-4".
package dnd

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > DnD module
   /r, /roll dice [text]: roll dice in the format NdM+Mod`

// DefaultRoll is used when the command comes with no dice expression.
const DefaultRoll = "1d20"

var (
	rePM  = regexp.MustCompile(`\+|-`)
	reMod = regexp.MustCompile(`[+-]\d+`)
)

// parseRoll splits a roll expression into its dice terms, the sign of each
// term, and the trailing flat-modifier text. A leading die with no sign is
// positive.
func parseRoll(text string) (dice []string, signs []int, mod string) {
	// Everything after the last 'd' digit group may hold flat modifiers.
	lastD := strings.LastIndex(text, "d")
	modifiers := text[lastD+1:]
	if loc := rePM.FindStringIndex(modifiers); loc != nil {
		mod = modifiers[loc[0]:]
		text = strings.TrimSuffix(text, mod)
	}

	dice = rePM.Split(text, -1)
	rawSigns := rePM.FindAllString(text, -1)
	if len(rawSigns) < len(dice) {
		rawSigns = append([]string{"+"}, rawSigns...)
	}
	for _, s := range rawSigns {
		if s == "-" {
			signs = append(signs, -1)
		} else {
			signs = append(signs, 1)
		}
	}
	return dice, signs, mod
}

// parseDice reads one NdM term into the number of dice and the faces of
// the die.
func parseDice(text string) (nDice, nFaces int, err error) {
	parts := strings.Split(text, "d")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("not a dice expression: %q", text)
	}
	if nDice, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("not a dice expression: %q", text)
	}
	if nFaces, err = strconv.Atoi(parts[1]); err != nil || nFaces < 1 {
		return 0, 0, fmt.Errorf("not a dice expression: %q", text)
	}
	return nDice, nFaces, nil
}

// rollDice evaluates a roll expression and renders the result with the
// per-die breakdown, e.g. "(15) + (3) +2 = 20".
func rollDice(text string) (string, error) {
	dice, signs, mod := parseRoll(text)

	var rolls []int
	for i, term := range dice {
		nDice, nFaces, err := parseDice(term)
		if err != nil {
			return "", err
		}
		for range nDice {
			rolls = append(rolls, signs[i]*(rand.Intn(nFaces)+1))
		}
	}

	total := 0
	parts := make([]string, 0, len(rolls))
	for _, r := range rolls {
		total += r
		parts = append(parts, fmt.Sprintf("(%d)", r))
	}
	result := strings.Join(parts, " + ")

	if strings.TrimSpace(mod) != "" {
		modifiers := reMod.FindAllString(mod, -1)
		for _, m := range modifiers {
			v, err := strconv.Atoi(m)
			if err != nil {
				return "", fmt.Errorf("bad modifier: %q", m)
			}
			total += v
		}
		mod = strings.Join(modifiers, " ")
	}
	return fmt.Sprintf("%s %s = %d", result, mod, total), nil
}

// Component rolls dice for anyone in the chat; it deliberately skips the
// identity check.
type Component struct {
	inv *dispatch.Invocation
}

// New builds the handler for one invocation.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	return &Component{inv: inv}, nil
}

// TelegramMessage rolls the requested dice and replies with the breakdown,
// attributed to the sender.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	text := strings.TrimSpace(msg.Text)
	rollCmd := DefaultRoll
	rollText := ""
	if text != "" {
		parts := strings.SplitN(text, " ", 2)
		rollCmd = parts[0]
		if len(parts) == 2 {
			rollText = " " + parts[1]
		}
	}

	result, err := rollDice(rollCmd)
	if err != nil {
		return c.inv.Reply(fmt.Sprintf("I could not parse that roll: %v", err))
	}
	return c.inv.Reply(fmt.Sprintf("%s rolled%s:\n%s", strings.TrimSpace(msg.Username), rollText, result))
}

// CommandLine rolls the expression given with --roll and sends the result
// to the operator.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	expr := args.Roll
	if expr == "" {
		expr = DefaultRoll
	}
	result, err := rollDice(expr)
	if err != nil {
		return err
	}
	return c.inv.Notify(result)
}
