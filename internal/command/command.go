// Package command turns parsed chat commands into tally operations and replies.
package command

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/ledger"
	"github.com/starford/devtally/internal/models"
	"github.com/starford/devtally/internal/parser"
	"github.com/starford/devtally/internal/tallyservice"
)

// Tally is the subset of the tally service used by commands.
type Tally interface {
	Record(ctx context.Context, raw string, kind models.Kind, n int, note string) (*tallyservice.Result, error)
	Report(ctx context.Context) (string, error)
	Notes(ctx context.Context, raw string) (string, error)
	Reset(ctx context.Context) error
}

// Handler dispatches commands to the tally service.
type Handler struct {
	svc Tally
}

// NewHandler creates a new Handler.
func NewHandler(svc Tally) *Handler {
	return &Handler{svc: svc}
}

// Handle executes cmd and returns the reply text. ok is false for commands
// this handler does not know, which get no reply. Usage and validation
// problems become replies; storage errors are returned.
func (h *Handler) Handle(ctx context.Context, cmd parser.Command) (reply string, ok bool, err error) {
	switch cmd.Name {
	case "add":
		reply, err = h.record(ctx, cmd, models.KindDone, usageAdd, addDoneFmt)
	case "fail":
		reply, err = h.record(ctx, cmd, models.KindFail, usageFail, addFailFmt)
	case "report":
		reply, err = h.svc.Report(ctx)
	case "reset":
		// No confirmation and no admin check: anyone in the chat can wipe the data.
		if err = h.svc.Reset(ctx); err == nil {
			reply = resetDone
		}
	case "notes":
		reply, err = h.notes(ctx, cmd)
	case "help", "start":
		reply = helpText
	default:
		return "", false, nil
	}
	if err != nil {
		return "", true, err
	}
	return reply, true, nil
}

func (h *Handler) record(ctx context.Context, cmd parser.Command, kind models.Kind, usage, okFmt string) (string, error) {
	if err := requireArgs(cmd, 2); err != nil {
		return usage, nil
	}
	n, err := ledger.ParseCount(cmd.Args[1])
	if err != nil {
		return notInteger, nil
	}
	res, err := h.svc.Record(ctx, cmd.Args[0], kind, n, cmd.Rest(2))
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return emptyUser, nil
		}
		return "", err
	}
	return fmt.Sprintf(okFmt, res.Handle, res.N), nil
}

func (h *Handler) notes(ctx context.Context, cmd parser.Command) (string, error) {
	if err := requireArgs(cmd, 1); err != nil {
		return usageNotes, nil
	}
	return h.svc.Notes(ctx, cmd.Args[0])
}

// requireArgs returns an error wrapping apperr.ErrUsage when cmd has fewer
// than minArgs arguments.
func requireArgs(cmd parser.Command, minArgs int) error {
	if err := validation.Validate(cmd.Args, validation.Required, validation.Length(minArgs, 0)); err != nil {
		return fmt.Errorf("%w: /%s needs at least %d arguments", apperr.ErrUsage, cmd.Name, minArgs)
	}
	return nil
}
