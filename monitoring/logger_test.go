package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("channel %s: %d", "C", 3)
	if got != "channel C: 3" {
		t.Errorf("Logf wrote %q", got)
	}

	SetLogger(nil)
	Logf("muted %d", 1)
	if got != "channel C: 3" {
		t.Errorf("nil logger should be a no-op, got %q", got)
	}
}
