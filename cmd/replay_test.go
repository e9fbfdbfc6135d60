package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kozaktomas/face-animator/internal/engine"
)

const recording = `
[]
{"landmarks": {"13": {"x": 0.5, "y": 0.45, "z": 0}, "14": {"x": 0.5, "y": 0.55, "z": 0}, "61": {"x": 0.4, "y": 0.5, "z": 0}, "291": {"x": 0.6, "y": 0.5, "z": 0}}}

{"13": {"x": 0.5, "y": 0.2, "z": 0}, "14": {"x": 0.5, "y": 0.8, "z": 0}, "61": {"x": 0.4, "y": 0.5, "z": 0}, "291": {"x": 0.6, "y": 0.5, "z": 0}}
not json
`

func TestReadFrameLines_SkipsBlankLines(t *testing.T) {
	lines, err := readFrameLines(strings.NewReader(recording))
	if err != nil {
		t.Fatalf("readFrameLines() error = %v", err)
	}
	if len(lines) != 4 {
		t.Errorf("expected 4 lines, got %d", len(lines))
	}
}

func TestParseFrameLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
		points bool
	}{
		{"array", `[null, {"x": 0.1, "y": 0.2, "z": 0}]`, true, true},
		{"keyed object", `{"1": {"x": 0.5, "y": 0.5, "z": 0}}`, true, true},
		{"event payload", `{"landmarks": [{"x": 0.5, "y": 0.5, "z": 0}]}`, true, true},
		{"empty array", `[]`, true, false},
		{"garbage", `not json`, false, false},
		{"bad payload", `{"landmarks": "nope"}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok := parseFrameLine([]byte(tt.line))
			if ok != tt.wantOK {
				t.Fatalf("parseFrameLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK && frame.Empty() == tt.points {
				t.Errorf("frame.Empty() = %v, want %v", frame.Empty(), !tt.points)
			}
		})
	}
}

func TestReplayFrames(t *testing.T) {
	lines, err := readFrameLines(strings.NewReader(recording))
	if err != nil {
		t.Fatalf("readFrameLines() error = %v", err)
	}

	var ids []uint64
	result, err := replayFrames(lines, engine.New(), func(d engine.Descriptor) error {
		ids = append(ids, d.FrameID)
		return nil
	})
	if err != nil {
		t.Fatalf("replayFrames() error = %v", err)
	}

	if result.Frames != 4 || result.Malformed != 1 {
		t.Errorf("expected 4 frames with 1 malformed, got %+v", result)
	}
	want := map[engine.Expression]int{
		engine.ExpressionNeutral:   2,
		engine.ExpressionTalking:   1,
		engine.ExpressionSurprised: 1,
	}
	for expr, n := range want {
		if result.Expressions[expr] != n {
			t.Errorf("expected %d %s frames, got %d", n, expr, result.Expressions[expr])
		}
	}
	for i, id := range ids {
		if id != uint64(i+1) {
			t.Errorf("frame %d has id %d", i, id)
		}
	}
}

func TestPrintReplaySummary(t *testing.T) {
	var buf bytes.Buffer
	printReplaySummary(&buf, ReplayResult{
		Frames:      4,
		Blinks:      1,
		Expressions: map[engine.Expression]int{engine.ExpressionHappy: 1, engine.ExpressionNeutral: 3},
	})

	out := buf.String()
	for _, want := range []string{"Frames:    4", "Blinks:    1", "happy", "25.0%", "75.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
