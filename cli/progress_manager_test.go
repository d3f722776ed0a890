package cli

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

type fakeSpinner struct {
	mu        sync.Mutex
	text      string
	stopped   bool
	successes []string
	failures  []string
}

func (f *fakeSpinner) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeSpinner) Success(message ...any) {
	f.mu.Lock()
	f.successes = append(f.successes, fmt.Sprint(message...))
	f.mu.Unlock()
	_ = f.Stop()
}

func (f *fakeSpinner) Fail(message ...any) {
	f.mu.Lock()
	f.failures = append(f.failures, fmt.Sprint(message...))
	f.mu.Unlock()
	_ = f.Stop()
}

func (f *fakeSpinner) UpdateText(text string) {
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
}

// spinnerRecorder hands out fake spinners and remembers them in order.
type spinnerRecorder struct {
	mu       sync.Mutex
	spinners []*fakeSpinner
}

func (r *spinnerRecorder) factory(_ io.Writer, text string) (progressSpinner, error) {
	fs := &fakeSpinner{text: text}
	r.mu.Lock()
	r.spinners = append(r.spinners, fs)
	r.mu.Unlock()
	return fs, nil
}

func newTestProgressManager(out io.Writer, steps []*Step, opts ...ProgressManagerOption) (*ProgressManager, *spinnerRecorder) {
	rec := &spinnerRecorder{}
	opts = append(opts, withProgressSpinnerFactory(rec.factory))
	return NewProgressManager(out, steps, opts...), rec
}

func TestGetPrefix(t *testing.T) {
	test.That(t, getPrefix(&Step{}), test.ShouldEqual, "")
	test.That(t, getPrefix(&Step{IndentLevel: 1}), test.ShouldEqual, "  → ")
	test.That(t, getPrefix(&Step{IndentLevel: 2}), test.ShouldEqual, "    → ")
}

func TestStartParentStep(t *testing.T) {
	var buf bytes.Buffer
	pm, rec := newTestProgressManager(&buf, []*Step{{ID: "plan", Message: "Planning"}})

	test.That(t, pm.Start("plan"), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual, " …  Planning\n")
	test.That(t, rec.spinners, test.ShouldBeEmpty)
	test.That(t, pm.stepMap["plan"].Status, test.ShouldEqual, StepRunning)
}

func TestChildStepLifecycle(t *testing.T) {
	var buf bytes.Buffer
	pm, rec := newTestProgressManager(&buf, []*Step{
		{ID: "map", Message: "Building occupancy map", IndentLevel: 1},
		{ID: "plan", Message: "Planning", CompletedMsg: "Planned", IndentLevel: 1},
	})

	test.That(t, pm.Start("map"), test.ShouldBeNil)
	test.That(t, rec.spinners, test.ShouldHaveLength, 1)
	test.That(t, rec.spinners[0].text, test.ShouldContainSubstring, "→ Building occupancy map")

	// starting the next child stops the previous spinner
	test.That(t, pm.Start("plan"), test.ShouldBeNil)
	test.That(t, rec.spinners, test.ShouldHaveLength, 2)
	test.That(t, rec.spinners[0].stopped, test.ShouldBeTrue)

	pm.UpdateText("iteration 10")
	test.That(t, rec.spinners[1].text, test.ShouldEqual, "iteration 10")

	test.That(t, pm.Complete("plan"), test.ShouldBeNil)
	test.That(t, rec.spinners[1].successes, test.ShouldHaveLength, 1)
	test.That(t, rec.spinners[1].successes[0], test.ShouldContainSubstring, "→ Planned (")
	test.That(t, pm.currentSpinner, test.ShouldBeNil)
	test.That(t, pm.stepMap["plan"].Status, test.ShouldEqual, StepCompleted)
}

func TestCompleteReportsElapsedTime(t *testing.T) {
	mock := clock.NewMock()
	pm, rec := newTestProgressManager(io.Discard, []*Step{{ID: "map", Message: "Building occupancy map", IndentLevel: 1}},
		withProgressClock(mock))

	test.That(t, pm.Start("map"), test.ShouldBeNil)
	mock.Add(1500 * time.Millisecond)
	test.That(t, pm.Complete("map"), test.ShouldBeNil)
	test.That(t, rec.spinners[0].successes, test.ShouldResemble, []string{"   → Building occupancy map (1.5s)"})
}

func TestFailStep(t *testing.T) {
	var buf bytes.Buffer
	pm, rec := newTestProgressManager(&buf, []*Step{{ID: "plan", Message: "Planning", IndentLevel: 1}})

	test.That(t, pm.Start("plan"), test.ShouldBeNil)
	test.That(t, pm.Fail("plan", errors.New("no path")), test.ShouldBeNil)
	test.That(t, rec.spinners[0].failures, test.ShouldResemble, []string{"   → Planning: no path"})
	test.That(t, pm.stepMap["plan"].Status, test.ShouldEqual, StepFailed)
}

func TestCompleteWithMessage(t *testing.T) {
	var buf bytes.Buffer
	pm, rec := newTestProgressManager(&buf, []*Step{{ID: "request", Message: "Reading request", IndentLevel: 1}})

	test.That(t, pm.Start("request"), test.ShouldBeNil)
	test.That(t, pm.CompleteWithMessage("request", "Read goal request"), test.ShouldBeNil)
	test.That(t, rec.spinners[0].successes[0], test.ShouldContainSubstring, "Read goal request")
}

func TestProgressOutputDisabled(t *testing.T) {
	var buf bytes.Buffer
	pm, rec := newTestProgressManager(&buf, []*Step{
		{ID: "parent", Message: "Parent"},
		{ID: "child", Message: "Child", IndentLevel: 1},
	}, WithProgressOutput(false))

	test.That(t, pm.Start("parent"), test.ShouldBeNil)
	test.That(t, pm.Start("child"), test.ShouldBeNil)
	test.That(t, pm.Complete("child"), test.ShouldBeNil)
	test.That(t, pm.Fail("parent", errors.New("boom")), test.ShouldBeNil)
	pm.Stop()

	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, rec.spinners, test.ShouldBeEmpty)
	// statuses are still tracked
	test.That(t, pm.stepMap["child"].Status, test.ShouldEqual, StepCompleted)
	test.That(t, pm.stepMap["parent"].Status, test.ShouldEqual, StepFailed)
}

func TestUnknownStep(t *testing.T) {
	pm, _ := newTestProgressManager(io.Discard, nil)
	test.That(t, pm.Start("missing"), test.ShouldNotBeNil)
	test.That(t, pm.Complete("missing"), test.ShouldNotBeNil)
	test.That(t, pm.Fail("missing", errors.New("x")), test.ShouldNotBeNil)
}

func TestConcurrentUpdates(t *testing.T) {
	pm, _ := newTestProgressManager(io.Discard, []*Step{{ID: "plan", Message: "Planning", IndentLevel: 1}})
	test.That(t, pm.Start("plan"), test.ShouldBeNil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pm.UpdateText(fmt.Sprintf("iteration %d", i))
		}(i)
	}
	wg.Wait()
	pm.Stop()
	test.That(t, pm.currentSpinner, test.ShouldBeNil)
}
