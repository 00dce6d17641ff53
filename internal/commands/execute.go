package commands

import "fmt"

type Result struct {
	Message string
	// HabitID names the habit the command touched, if any.
	HabitID string
}

type Handlers struct {
	Add     func(AddArgs) (Result, error)
	Done    func(MarkArgs) (Result, error)
	Undo    func(MarkArgs) (Result, error)
	Protect func(MarkArgs) (Result, error)
	Skip    func(MarkArgs) (Result, error)
	Unskip  func(MarkArgs) (Result, error)
	Show    func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeDone:
		return runMark(cmd, handlers.Done)
	case TypeUndo:
		return runMark(cmd, handlers.Undo)
	case TypeProtect:
		return runMark(cmd, handlers.Protect)
	case TypeSkip:
		return runMark(cmd, handlers.Skip)
	case TypeUnskip:
		return runMark(cmd, handlers.Unskip)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func runMark(cmd Command, fn func(MarkArgs) (Result, error)) (Result, error) {
	if fn == nil {
		return Result{}, missing(cmd.Type)
	}
	return fn(*cmd.Mark)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
