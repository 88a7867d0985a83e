// Package confirm implements confirm-then-execute for destructive actions.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/FurmanovVitaliy/ims-dashboard/utils"
)

var (
	ErrNotOpen        = errors.New("no confirmation pending")
	ErrBusy           = errors.New("confirmed action still running")
	ErrTicketMismatch = errors.New("confirmation ticket does not match")
	ErrActionPanicked = errors.New("confirmed action panicked")
)

type State int

const (
	Closed State = iota
	Open
	Executing
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Executing:
		return "executing"
	default:
		return "closed"
	}
}

// Action is the command a confirmation guards.
type Action struct {
	Description string
	Execute     func(ctx context.Context) error
}

type Options struct {
	Title         string
	Description   string
	ConfirmText   string
	CancelText    string
	Variant       string
	IsDestructive bool
}

func DefaultOptions() Options {
	return Options{
		Title:       "Confirm Action",
		Description: "Are you sure you want to perform this action?",
		ConfirmText: "Confirm",
		CancelText:  "Cancel",
		Variant:     "primary",
	}
}

// merge fills empty fields of o from the defaults.
func (o Options) merge() Options {
	d := DefaultOptions()
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.Description == "" {
		o.Description = d.Description
	}
	if o.ConfirmText == "" {
		o.ConfirmText = d.ConfirmText
	}
	if o.CancelText == "" {
		o.CancelText = d.CancelText
	}
	if o.Variant == "" || o.IsDestructive {
		o.Variant = d.Variant
	}
	return o
}

// Prompt is what the confirmation dialog shows.
type Prompt struct {
	Ticket  string
	Options Options
}

// Gate holds at most one pending action.
//
//	Closed -> Confirm -> Open -> Accept -> Executing -> Closed
//	                     Open -> Cancel -> Closed
//
// Confirm while Open replaces the pending action and issues a new ticket.
type Gate struct {
	mu     sync.Mutex
	state  State
	action Action
	prompt Prompt
}

func NewGate() *Gate {
	return &Gate{}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Confirm registers action and opens the gate.
func (g *Gate) Confirm(action Action, opts Options) (Prompt, error) {
	const op = "confirm.Gate.Confirm"

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Executing {
		return Prompt{}, fmt.Errorf("%s: %w", op, ErrBusy)
	}
	if opts.Description == "" {
		opts.Description = action.Description
	}

	ticket, err := utils.GenerateID()
	if err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", op, err)
	}

	g.action = action
	g.prompt = Prompt{Ticket: ticket, Options: opts.merge()}
	g.state = Open
	return g.prompt, nil
}

// Pending returns the open prompt.
func (g *Gate) Pending() (Prompt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Open {
		return Prompt{}, false
	}
	return g.prompt, true
}

// Accept runs the pending action. The gate is closed afterwards whatever the
// action returns, panics included.
func (g *Gate) Accept(ctx context.Context, ticket string) (err error) {
	const op = "confirm.Gate.Accept"

	g.mu.Lock()
	switch {
	case g.state == Executing:
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrBusy)
	case g.state != Open:
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	case g.prompt.Ticket != ticket:
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrTicketMismatch)
	}
	action := g.action
	g.state = Executing
	g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", op, ErrActionPanicked, r)
		}
		g.close()
	}()

	if action.Execute == nil {
		return nil
	}
	if err := action.Execute(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Cancel discards the pending action without running it.
func (g *Gate) Cancel(ticket string) error {
	const op = "confirm.Gate.Cancel"

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.state == Executing:
		return fmt.Errorf("%s: %w", op, ErrBusy)
	case g.state != Open:
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	case g.prompt.Ticket != ticket:
		return fmt.Errorf("%s: %w", op, ErrTicketMismatch)
	}
	g.reset()
	return nil
}

// Discard cancels whatever prompt is open, whichever ticket it carries.
func (g *Gate) Discard() error {
	const op = "confirm.Gate.Discard"

	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Executing:
		return fmt.Errorf("%s: %w", op, ErrBusy)
	case Closed:
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	}
	g.reset()
	return nil
}

func (g *Gate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

func (g *Gate) reset() {
	g.state = Closed
	g.action = Action{}
	g.prompt = Prompt{}
}
