package display

import (
	"strings"
	"testing"

	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
)

func TestRenderLayoutProducesGridPerLayer(t *testing.T) {
	lo, err := layout.InitBlank(1, 2, 1)
	if err != nil {
		t.Fatalf("InitBlank: %v", err)
	}

	if err := lo.Replace(layout.NewPosition(0, 0, 0), keycode.A); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	kd := NewKeyboardDisplay()

	out := kd.RenderLayout(lo)
	if !strings.Contains(out, "LAYER 0") {
		t.Errorf("expected a LAYER 0 banner, got:\n%s", out)
	}

	if !strings.Contains(out, "A") {
		t.Errorf("expected the placed keycode A to appear, got:\n%s", out)
	}
}

func TestPrintFingerWorkloadEmptyCounts(t *testing.T) {
	kd := NewKeyboardDisplay()
	phalanx := layer.NewLayer(1, 2, layer.PhalanxKey{})

	out := kd.PrintFingerWorkload(map[layout.Position]uint64{}, phalanx)
	if out != "" {
		t.Errorf("expected empty output for zero counts, got %q", out)
	}
}

func TestPrintFingerWorkloadNonEmpty(t *testing.T) {
	kd := NewKeyboardDisplay()
	phalanx := layer.NewLayer(1, 2, layer.PhalanxKey{})

	if err := phalanx.Set(0, 0, layer.PhalanxKey{Hand: layer.HandLeft, Finger: layer.FingerIndex}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	counts := map[layout.Position]uint64{layout.NewPosition(0, 0, 0): 10}

	out := kd.PrintFingerWorkload(counts, phalanx)
	if !strings.Contains(out, "FINGER WORKLOAD") {
		t.Errorf("expected a workload header, got:\n%s", out)
	}
}
