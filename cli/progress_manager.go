package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pterm/pterm"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type progressSpinnerFactory func(w io.Writer, text string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(w io.Writer, text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// StepStatus represents the state of a progress step.
type StepStatus int

const (
	// StepPending indicates a step has not yet started.
	StepPending StepStatus = iota
	// StepRunning indicates a step is currently in progress.
	StepRunning
	// StepCompleted indicates a step finished successfully.
	StepCompleted
	// StepFailed indicates a step encountered an error.
	StepFailed
)

// Step is one stage of a cli command, such as loading the map or growing the tree.
type Step struct {
	ID           string
	Message      string
	Status       StepStatus
	CompletedMsg string // shown instead of Message on success
	IndentLevel  int    // 0 = root, 1 = child (→)
	startTime    time.Time
}

// ProgressManager reports a fixed sequence of steps, one spinner at a time.
type ProgressManager struct {
	out            io.Writer
	steps          []*Step
	stepMap        map[string]*Step
	currentSpinner progressSpinner
	spinnerFactory progressSpinnerFactory
	clock          clock.Clock
	mu             sync.Mutex
	disabled       bool
}

// ProgressManagerOption allows customizing ProgressManager behavior at creation time.
type ProgressManagerOption func(*ProgressManager)

// WithProgressOutput enables or disables terminal output for a ProgressManager.
func WithProgressOutput(enabled bool) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.disabled = !enabled
	}
}

func withProgressClock(c clock.Clock) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.clock = c
	}
}

func withProgressSpinnerFactory(factory progressSpinnerFactory) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.spinnerFactory = factory
	}
}

// NewProgressManager creates a new ProgressManager writing to out with all steps registered upfront.
func NewProgressManager(out io.Writer, steps []*Step, opts ...ProgressManagerOption) *ProgressManager {
	pterm.Success.Prefix = pterm.Prefix{
		Text:  "✓",
		Style: pterm.NewStyle(pterm.FgGreen),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "✗",
		Style: pterm.NewStyle(pterm.FgRed),
	}
	pterm.DefaultSpinner.Style = pterm.NewStyle(pterm.FgCyan)

	stepMap := make(map[string]*Step, len(steps))
	for _, step := range steps {
		stepMap[step.ID] = step
	}

	pm := &ProgressManager{
		out:            out,
		steps:          steps,
		stepMap:        stepMap,
		spinnerFactory: defaultSpinnerFactory,
		clock:          clock.New(),
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

func getPrefix(step *Step) string {
	prefix := strings.Repeat("  ", step.IndentLevel)
	if step.IndentLevel > 0 {
		prefix += "→ "
	}
	return prefix
}

// Start marks the step as running. Child steps get a spinner, parent steps a single "…" line.
func (pm *ProgressManager) Start(stepID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stepID]
	if !exists {
		return fmt.Errorf("step %q not found", stepID)
	}
	step.Status = StepRunning
	step.startTime = pm.clock.Now()

	if pm.disabled {
		return nil
	}

	if step.IndentLevel == 0 {
		_, err := fmt.Fprintf(pm.out, " …  %s\n", step.Message)
		return err
	}

	if pm.currentSpinner != nil {
		_ = pm.currentSpinner.Stop() //nolint:errcheck
	}
	// pterm puts a space after the spinner character.
	spinner, err := pm.spinnerFactory(pm.out, " "+getPrefix(step)+step.Message)
	if err != nil {
		return fmt.Errorf("failed to start child spinner: %w", err)
	}
	pm.currentSpinner = spinner
	return nil
}

// Complete marks a step as completed.
func (pm *ProgressManager) Complete(stepID string) error {
	return pm.complete(stepID, "")
}

// CompleteWithMessage marks a step as completed with a custom message.
func (pm *ProgressManager) CompleteWithMessage(stepID, message string) error {
	return pm.complete(stepID, message)
}

func (pm *ProgressManager) complete(stepID, message string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stepID]
	if !exists {
		return fmt.Errorf("step %q not found", stepID)
	}
	step.Status = StepCompleted

	if message == "" {
		message = step.CompletedMsg
	}
	if message == "" {
		message = step.Message
	}
	if !step.startTime.IsZero() {
		message += fmt.Sprintf(" (%s)", pm.clock.Since(step.startTime).Round(time.Millisecond))
	}

	if pm.disabled {
		return nil
	}
	pm.finishLocked(step, message, true)
	return nil
}

// Fail marks a step as failed.
func (pm *ProgressManager) Fail(stepID string, err error) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stepID]
	if !exists {
		return fmt.Errorf("step %q not found", stepID)
	}
	step.Status = StepFailed

	if pm.disabled {
		return nil
	}
	pm.finishLocked(step, fmt.Sprintf("%s: %v", step.Message, err), false)
	return nil
}

func (pm *ProgressManager) finishLocked(step *Step, message string, ok bool) {
	text := message
	if step.IndentLevel > 0 {
		text = " " + getPrefix(step) + message
	}
	if pm.currentSpinner != nil {
		if ok {
			pm.currentSpinner.Success(text)
		} else {
			pm.currentSpinner.Fail(text)
		}
		pm.currentSpinner = nil
		return
	}
	if ok {
		pterm.Success.WithWriter(pm.out).Println(text)
	} else {
		pterm.Error.WithWriter(pm.out).Println(text)
	}
}

// UpdateText updates the text of the active spinner, for example with the iteration count.
func (pm *ProgressManager) UpdateText(text string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.disabled || pm.currentSpinner == nil {
		return
	}
	pm.currentSpinner.UpdateText(text)
}

// Stop stops any active spinner.
func (pm *ProgressManager) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.disabled || pm.currentSpinner == nil {
		return
	}
	_ = pm.currentSpinner.Stop() //nolint:errcheck
	pm.currentSpinner = nil
}
