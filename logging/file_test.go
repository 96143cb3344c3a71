package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdf.log")
	appender := NewFileAppender(path)

	logger := NewBlankLogger("file")
	logger.AddAppender(appender)
	logger.SetLevel(INFO)
	logger.Debugw("dropped")
	logger.Warnw("unable to generate spheres for link", "link", "wrist")
	test.That(t, appender.Close(), test.ShouldBeNil)

	//nolint:gosec
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 1)

	var entry map[string]interface{}
	test.That(t, json.Unmarshal([]byte(lines[0]), &entry), test.ShouldBeNil)
	test.That(t, entry["level"], test.ShouldEqual, "WARN")
	test.That(t, entry["logger"], test.ShouldEqual, "file")
	test.That(t, entry["link"], test.ShouldEqual, "wrist")
}
