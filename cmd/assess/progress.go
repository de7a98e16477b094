package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go-image-assessor/internal/logger"
	"go-image-assessor/pkg/models"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// assessment runs the request at most once and lets any number of callers wait for it
type assessment struct {
	run  func() (*models.AssessmentResponse, error)
	once sync.Once
	done chan struct{}
	resp *models.AssessmentResponse
	err  error
}

func newAssessment(run func() (*models.AssessmentResponse, error)) *assessment {
	return &assessment{run: run, done: make(chan struct{})}
}

func (a *assessment) start() {
	a.once.Do(func() {
		go func() {
			a.resp, a.err = a.run()
			close(a.done)
		}()
	})
}

func (a *assessment) wait() (*models.AssessmentResponse, error) {
	a.start()
	<-a.done
	return a.resp, a.err
}

type assessedMsg struct{}

// progressModel shows a spinner until the assessment finishes
type progressModel struct {
	spinner    spinner.Model
	label      string
	assessment *assessment
	cancel     context.CancelFunc
	done       bool
}

func newProgressModel(label string, cancel context.CancelFunc, a *assessment) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return progressModel{spinner: s, label: label, assessment: a, cancel: cancel}
}

func (m progressModel) Init() tea.Cmd {
	m.assessment.start()
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		<-m.assessment.done
		return assessedMsg{}
	})
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case assessedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// the assessment returns a processing error once cancelled
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// runWithProgress renders the spinner on stderr so stdout stays clean. The
// result always comes from the single assessment, whether or not the
// terminal program could run.
func runWithProgress(cancel context.CancelFunc, req models.AssessmentRequest, run func() (*models.AssessmentResponse, error)) (*models.AssessmentResponse, error) {
	a := newAssessment(run)
	label := fmt.Sprintf("Assessing %s against %s (%s)...", req.Measured, req.Reference, strings.Join(req.Metrics, ", "))

	if _, err := tea.NewProgram(newProgressModel(label, cancel, a), tea.WithOutput(os.Stderr)).Run(); err != nil {
		logger.WithError(err).Debug("Progress display unavailable")
	}
	return a.wait()
}
