package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		dev     bool
		enabled zap.AtomicLevel
		wantErr bool
	}{
		{level: "debug", dev: true, enabled: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{level: "", enabled: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{level: "WARN", enabled: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{level: "error", enabled: zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{level: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, tt.dev)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			want := tt.enabled.Level()
			if !l.Core().Enabled(want) {
				t.Errorf("level %v not enabled", want)
			}
			if want > zap.DebugLevel && l.Core().Enabled(want-1) {
				t.Errorf("level %v unexpectedly enabled", want-1)
			}
		})
	}
}
