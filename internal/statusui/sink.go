package statusui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"murmur/internal/domain"
)

// UI runs the status indicator and implements ports.EventSink by forwarding
// events into the running program. Events sent while no program is running
// are dropped.
type UI struct {
	mu      sync.Mutex
	program *tea.Program
	opts    []tea.ProgramOption
}

func New(opts ...tea.ProgramOption) *UI {
	return &UI{opts: opts}
}

// Run blocks until the user quits or ctx ends. Cancellation is not an error.
func (u *UI) Run(ctx context.Context, toggle func() error) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, u.opts...)
	p := tea.NewProgram(NewModel(toggle), opts...)

	u.mu.Lock()
	u.program = p
	u.mu.Unlock()

	_, err := p.Run()

	u.mu.Lock()
	u.program = nil
	u.mu.Unlock()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (u *UI) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	u.send(StateMsg{State: state, Reason: reason})
}

func (u *UI) FinalTranscript(commit domain.Commit) {
	u.send(CommitMsg{Commit: commit})
}

func (u *UI) SessionError(code domain.ErrorCode, detail string) {
	u.send(ErrorMsg{Code: code, Detail: detail})
}

func (u *UI) send(msg tea.Msg) {
	u.mu.Lock()
	p := u.program
	u.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}
