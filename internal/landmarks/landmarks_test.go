package landmarks

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestFrameAt(t *testing.T) {
	f := NewFrame(map[int]Point{
		NoseTip: {X: 0.5, Y: 0.4},
		Chin:    {X: math.NaN(), Y: 0.7},
	})

	tests := []struct {
		name  string
		index int
		want  bool
	}{
		{"present", NoseTip, true},
		{"non-finite", Chin, false},
		{"missing slot", 0, false},
		{"negative", -1, false},
		{"out of range", 10_000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := f.At(tt.index)
			if ok != tt.want {
				t.Errorf("At(%d) ok = %v, want %v", tt.index, ok, tt.want)
			}
		})
	}
}

func TestFrameAt_NilFrame(t *testing.T) {
	var f *Frame
	if _, ok := f.At(NoseTip); ok {
		t.Error("expected nil frame to report missing")
	}
	if !f.Empty() {
		t.Error("expected nil frame to be empty")
	}
	if f.Len() != 0 {
		t.Errorf("expected length 0, got %d", f.Len())
	}
}

func TestFrameUnmarshalJSON_Array(t *testing.T) {
	var f Frame
	if err := json.Unmarshal([]byte(`[{"x":0.1,"y":0.2,"z":0.3},null,{"x":1,"y":2,"z":3}]`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 slots, got %d", f.Len())
	}
	if _, ok := f.At(1); ok {
		t.Error("expected index 1 to be missing")
	}
	p, ok := f.At(2)
	if !ok || p.X != 1 || p.Y != 2 || p.Z != 3 {
		t.Errorf("unexpected point at 2: %+v (ok=%v)", p, ok)
	}
}

func TestFrameUnmarshalJSON_Object(t *testing.T) {
	var f Frame
	if err := json.Unmarshal([]byte(`{"1":{"x":0.5,"y":0.4,"z":0},"152":{"x":0.5,"y":0.7,"z":0}}`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Len() != 153 {
		t.Errorf("expected 153 slots, got %d", f.Len())
	}
	if p, ok := f.At(Chin); !ok || p.Y != 0.7 {
		t.Errorf("unexpected chin: %+v (ok=%v)", p, ok)
	}
}

func TestFrameUnmarshalJSON_Invalid(t *testing.T) {
	inputs := []string{
		`"nope"`,
		`{"abc":{"x":1,"y":1,"z":1}}`,
		`{"99999":{"x":1,"y":1,"z":1}}`,
		`[1,2,3]`,
	}
	for _, in := range inputs {
		var f Frame
		if err := json.Unmarshal([]byte(in), &f); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestFrameUnmarshalJSON_Null(t *testing.T) {
	var f Frame
	if err := json.Unmarshal([]byte(`null`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Empty() {
		t.Error("expected empty frame")
	}
}

func TestFrameMsgpack(t *testing.T) {
	in := NewFrame(map[int]Point{MouthTop: {X: 0.5, Y: 0.45}})

	data, err := msgpack.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Frame
	if err := msgpack.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Len() != in.Len() {
		t.Fatalf("expected %d slots, got %d", in.Len(), out.Len())
	}
	if p, ok := out.At(MouthTop); !ok || p.Y != 0.45 {
		t.Errorf("unexpected mouth top: %+v (ok=%v)", p, ok)
	}
	if _, ok := out.At(0); ok {
		t.Error("expected index 0 to stay missing")
	}
}
