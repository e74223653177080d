package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Status renders the progress line of the step currently running.
type Status interface {
	Start(message string)
	Update(message string)
	// Stop suspends rendering so the terminal can be used for prompts.
	Stop()
	// Resume restarts rendering after Stop.
	Resume()
	Done(message string)
	Failed(message string)
	Skipped(message string)
}

// PlainStatus writes one line per finished step and no animation. It is
// used when stdout is not a terminal.
type PlainStatus struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainStatus returns a Status writing to out.
func NewPlainStatus(out io.Writer) *PlainStatus {
	return &PlainStatus{out: out}
}

func (s *PlainStatus) Start(string)  {}
func (s *PlainStatus) Update(string) {}
func (s *PlainStatus) Stop()         {}
func (s *PlainStatus) Resume()       {}

func (s *PlainStatus) Done(message string) {
	s.println(message + doneStyle.Render("done"))
}

func (s *PlainStatus) Failed(message string) {
	s.println(message + failedStyle.Render("failed"))
}

func (s *PlainStatus) Skipped(message string) {
	s.println(message + skippedStyle.Render("skipped"))
}

func (s *PlainStatus) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

// SpinnerStatus animates the current status line with a bubbletea program.
// The program is torn down on Stop and on every final report, and started
// again on Resume or the next Start.
type SpinnerStatus struct {
	mu      sync.Mutex
	out     io.Writer
	message string
	program *tea.Program
	done    chan struct{}
}

// NewSpinnerStatus returns a Status animating on out.
func NewSpinnerStatus(out io.Writer) *SpinnerStatus {
	return &SpinnerStatus{out: out}
}

// Start begins rendering message.
func (s *SpinnerStatus) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.startLocked()
}

// Update replaces the text next to the spinner.
func (s *SpinnerStatus) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.program != nil {
		s.program.Send(statusMsg(message))
	}
}

// Stop suspends rendering.
func (s *SpinnerStatus) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Resume restarts rendering with the last message.
func (s *SpinnerStatus) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *SpinnerStatus) Done(message string) {
	s.finish(message + doneStyle.Render("done"))
}

func (s *SpinnerStatus) Failed(message string) {
	s.finish(message + failedStyle.Render("failed"))
}

func (s *SpinnerStatus) Skipped(message string) {
	s.finish(message + skippedStyle.Render("skipped"))
}

func (s *SpinnerStatus) finish(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	fmt.Fprintln(s.out, line)
}

func (s *SpinnerStatus) startLocked() {
	if s.program != nil {
		return
	}

	program := tea.NewProgram(
		newSpinnerModel(s.message),
		tea.WithOutput(s.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		_, _ = program.Run()
		close(done)
	}()

	s.program = program
	s.done = done
}

func (s *SpinnerStatus) stopLocked() {
	if s.program == nil {
		return
	}
	s.program.Send(stopMsg{})
	<-s.done
	s.program = nil
	s.done = nil
}

type (
	statusMsg string
	stopMsg   struct{}
)

type spinnerModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
}

func newSpinnerModel(message string) spinnerModel {
	return spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		message: message,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.message = string(msg)
		return m, nil
	case stopMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.spinner.View() + " " + m.message
}

var (
	_ Status = (*PlainStatus)(nil)
	_ Status = (*SpinnerStatus)(nil)
)
