package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debugw("grew node", "index", 3)
	logger.Infof("planning %d", 1)
	test.That(t, logs.Len(), test.ShouldEqual, 2)

	logger.SetLevel(WARN)
	logger.Info("dropped")
	logger.Warn("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 3)

	entries := logs.All()
	test.That(t, entries[0].Message, test.ShouldEqual, "grew node")
	test.That(t, entries[0].Level, test.ShouldEqual, zapcore.DebugLevel)
	test.That(t, entries[0].ContextMap()["index"], test.ShouldEqual, int64(3))
	test.That(t, entries[2].Level, test.ShouldEqual, zapcore.WarnLevel)
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("mdi")
	logger.AddAppender(NewWriterAppender(&buf))

	sub := logger.Sublogger("rrt")
	sub.Info("hello")
	test.That(t, buf.String(), test.ShouldContainSubstring, "mdi.rrt")
	test.That(t, buf.String(), test.ShouldContainSubstring, "hello")
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("msg", "lonely")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["lonely"], test.ShouldNotBeNil)
}

func TestVectorFields(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("finding path",
		"start", r3.Vector{X: 1, Y: -2.5, Z: 0.125},
		"path", []r3.Vector{{}, {X: 10}},
		"iterations", 7,
	)
	fields := logs.All()[0].ContextMap()
	test.That(t, fields["start"], test.ShouldEqual, "(1, -2.5, 0.125)")
	test.That(t, fields["path"], test.ShouldResemble, []interface{}{"(0, 0, 0)", "(10, 0, 0)"})
	test.That(t, fields["iterations"], test.ShouldEqual, int64(7))
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Level
	}{
		{"debug", DEBUG},
		{"Info", INFO},
		{"WARNING", WARN},
		{" error ", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.out)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileAppender(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "mdi.log")
	appender, closer := NewFileAppender(fn)

	logger := NewBlankLogger("mdi")
	logger.AddAppender(appender)
	logger.Infow("planned", "waypoints", 4)
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "planned")
	test.That(t, string(data), test.ShouldContainSubstring, `"waypoints": 4`)
}
