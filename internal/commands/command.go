package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/streakd/internal/model"
)

type Type string

const (
	TypeAdd     Type = "add"
	TypeDone    Type = "done"
	TypeUndo    Type = "undo"
	TypeProtect Type = "protect"
	TypeSkip    Type = "skip"
	TypeUnskip  Type = "unskip"
	TypeShow    Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// TargetSelected refers to the habit highlighted in the TUI.
const TargetSelected = "selected"

type AddArgs struct {
	Title    string
	Schedule model.Schedule
	Target   int
}

// MarkArgs carries the habit reference and the day for done, undo,
// protect, skip and unskip. When is unresolved; see ResolveDate.
type MarkArgs struct {
	Target string
	When   string
}

type ShowArgs struct {
	Subject string
	Target  string
}

var showSubjects = map[string]bool{
	"habits":   true,
	"stats":    true,
	"heatmap":  true,
	"upcoming": true,
}

type Command struct {
	Type Type
	Raw  string
	Add  *AddArgs
	Mark *MarkArgs
	Show *ShowArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch t := Type(head); t {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone, TypeUndo, TypeProtect, TypeSkip, TypeUnskip:
		return parseMark(input, t, args), nil
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseAdd reads "add <title> [every <schedule>] [target:N]".
func parseAdd(raw string, args []string) (Command, error) {
	title := make([]string, 0, len(args))
	var every []string
	target := 0
	for i := 0; i < len(args); i++ {
		arg := args[i]
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "target:"):
			n, err := positiveInt(strings.TrimPrefix(lower, "target:"))
			if err != nil {
				return Command{}, invalid("target must be a positive number: %s", arg)
			}
			target = n
		case lower == "every" && every == nil:
			every = []string{}
			for i++; i < len(args) && !strings.HasPrefix(strings.ToLower(args[i]), "target:"); i++ {
				every = append(every, args[i])
			}
			i--
		default:
			title = append(title, arg)
		}
	}
	name := strings.TrimSpace(strings.Join(title, " "))
	if name == "" {
		return Command{}, invalid("add requires a title")
	}
	schedule, err := ParseSchedule(strings.Join(every, " "))
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Title: name, Schedule: schedule, Target: target}}, nil
}

// parseMark treats a trailing date token as the day and the rest as the
// habit reference. Both default: the selected habit, today.
func parseMark(raw string, t Type, args []string) Command {
	when := ""
	if n := len(args); n > 0 && isDateToken(args[n-1]) {
		when = args[n-1]
		args = args[:n-1]
	}
	target := strings.TrimSpace(strings.Join(args, " "))
	if target == "" {
		target = TargetSelected
	}
	return Command{Type: t, Raw: raw, Mark: &MarkArgs{Target: target, When: when}}
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires a subject")
	}
	subject := strings.ToLower(args[0])
	if !showSubjects[subject] {
		return Command{}, invalid("unknown show subject: %s", subject)
	}
	target := strings.TrimSpace(strings.Join(args[1:], " "))
	if target == "" {
		target = TargetSelected
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject, Target: target}}, nil
}
