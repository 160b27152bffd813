package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/raysh454/headprobe/internal/logging"
)

func TestNew_JSONIncludesComponentAndFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Component: "probe", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.With(logging.Field{Key: "request_id", Value: "abc"}).
		Info("sent", logging.Field{Key: "method", Value: "HEAD"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "sent" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["component"] != "probe" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["request_id"] != "abc" || entry["method"] != "HEAD" {
		t.Errorf("fields missing: %v", entry)
	}
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("below-level entries were written: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn entry missing: %s", buf.String())
	}
}

func TestNew_RejectsUnknownLevelAndFormat(t *testing.T) {
	t.Parallel()
	if _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestErrField(t *testing.T) {
	t.Parallel()
	f := logging.Err(nil)
	if f.Key != "error" || f.Value != nil {
		t.Errorf("Err(nil) = %+v", f)
	}
}
