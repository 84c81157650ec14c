package device

import (
	"errors"
	"testing"

	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/sensor"
)

func TestBuiltinLayouts(t *testing.T) {
	tests := []struct {
		kind     Kind
		channels int
	}{
		{KindNova, 10},
		{KindNova2, 15},
		{KindSenseGlove, 20},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d, err := New(tt.kind, hand.Left)
			if err != nil {
				t.Fatalf("New error = %v", err)
			}
			if d.Kind() != tt.kind || d.Side() != hand.Left {
				t.Errorf("device = %v/%v", d.Kind(), d.Side())
			}
			if got := Channels(d); got != tt.channels {
				t.Errorf("Channels = %d, want %d", got, tt.channels)
			}
			if err := checkBindings(Bindings(d)); err != nil {
				t.Errorf("built-in bindings invalid: %v", err)
			}
			r := DefaultRange(d)
			if r.Len() != tt.channels {
				t.Errorf("DefaultRange has %d channels", r.Len())
			}
			if err := r.Validate(); err != nil {
				t.Errorf("DefaultRange invalid: %v", err)
			}
		})
	}
}

func TestNew_CustomNeedsBindings(t *testing.T) {
	if _, err := New(KindCustom, hand.Right); !errors.Is(err, hand.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewCustom(t *testing.T) {
	bindings := []Binding{
		{Channel: 0, Finger: hand.Index, Movements: []hand.Movement{hand.FingerMcpFlexion}},
		{Channel: 1, Finger: hand.Index, Movements: []hand.Movement{hand.FingerPipFlexion}},
	}
	d, err := NewCustom("bench", hand.Right, bindings, nil)
	if err != nil {
		t.Fatalf("NewCustom error = %v", err)
	}
	if Channels(d) != 2 {
		t.Errorf("Channels = %d, want 2", Channels(d))
	}
	r := DefaultRange(d)
	if r.Normalize(0, 0.5) != 0.5 || r.Normalize(1, 1) != 1 {
		t.Errorf("custom default range should be [0,1], got %+v", r.Channels)
	}
	if Name(d) != "bench (right)" {
		t.Errorf("Name = %q", Name(d))
	}

	t.Run("duplicate movement", func(t *testing.T) {
		dup := append(bindings, Binding{Channel: 2, Finger: hand.Index, Movements: []hand.Movement{hand.FingerPipFlexion}})
		if _, err := NewCustom("dup", hand.Right, dup, nil); !errors.Is(err, hand.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("thumb movement on finger", func(t *testing.T) {
		bad := []Binding{{Channel: 0, Finger: hand.Index, Movements: []hand.Movement{hand.ThumbIpFlexion}}}
		if _, err := NewCustom("bad", hand.Right, bad, nil); !errors.Is(err, hand.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("range size mismatch", func(t *testing.T) {
		if _, err := NewCustom("r", hand.Right, bindings, sensor.New(3)); !errors.Is(err, hand.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestParseBinding(t *testing.T) {
	b, err := ParseBinding(4, "thumb", []string{"cmc_flexion", "ip_flexion"})
	if err != nil {
		t.Fatalf("ParseBinding error = %v", err)
	}
	if b.Finger != hand.Thumb || len(b.Movements) != 2 || b.Movements[1] != hand.ThumbIpFlexion {
		t.Errorf("binding = %+v", b)
	}
	if _, err := ParseBinding(0, "toe", nil); !errors.Is(err, hand.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ParseBinding(0, "index", []string{"ip_flexion"}); !errors.Is(err, hand.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFrame_Validate(t *testing.T) {
	d := Nova{Hand: hand.Right}

	if err := (Frame{}).Validate(); !errors.Is(err, hand.ErrNoData) {
		t.Errorf("empty frame: expected ErrNoData, got %v", err)
	}
	short := NewFrame(d, []float32{1, 2}, geom.Identity)
	if err := short.Validate(); !errors.Is(err, hand.ErrInvalidArgument) {
		t.Errorf("short frame: expected ErrInvalidArgument, got %v", err)
	}
	ok := NewFrame(d, make([]float32, 10), geom.Identity)
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate error = %v", err)
	}

	c := ok.Clone()
	c.Values[0] = 42
	if ok.Values[0] == 42 {
		t.Error("Clone shares the value slice")
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Nova2")
	if err != nil || k != KindNova2 {
		t.Errorf("ParseKind = %v, %v", k, err)
	}
	if _, err := ParseKind("glove9000"); !errors.Is(err, hand.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
