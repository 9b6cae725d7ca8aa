package layout

import (
	"testing"

	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/ngram"
)

func mustParseTestLayout(t *testing.T) *Layout {
	t.Helper()

	s := "___Layer 0___\n" +
		"A_10 B_10 LS1_10 C_10\n" +
		"___Layer 1___\n" +
		"D_10 E_10 LST1_0_10 F_10\n"

	lo, err := ParseString(s, 1, 4)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	return lo
}

func wantSeq(t *testing.T, lo *Layout, k keycode.Keycode, want ...Position) {
	t.Helper()

	seqs := lo.PathsTo(k)
	if len(seqs) != 1 {
		t.Fatalf("PathsTo(%s) = %d sequences, want 1", k, len(seqs))
	}

	got := seqs[0].Positions()
	if len(got) != len(want) {
		t.Fatalf("PathsTo(%s) = %v, want %v", k, got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PathsTo(%s)[%d] = %v, want %v", k, i, got[i], want[i])
		}
	}
}

func TestParseStringBuildsPathMap(t *testing.T) {
	lo := mustParseTestLayout(t)

	wantSeq(t, lo, keycode.A, NewPosition(0, 0, 0))
	wantSeq(t, lo, keycode.B, NewPosition(0, 0, 1))
	wantSeq(t, lo, keycode.C, NewPosition(0, 0, 3))
	wantSeq(t, lo, keycode.LS(1), NewPosition(0, 0, 2))
	wantSeq(t, lo, keycode.D, NewPosition(0, 0, 2), NewPosition(1, 0, 0))
	wantSeq(t, lo, keycode.E, NewPosition(0, 0, 2), NewPosition(1, 0, 1))
	wantSeq(t, lo, keycode.F, NewPosition(0, 0, 2), NewPosition(1, 0, 3))
}

func TestVerifyCorrectnessCleanLayout(t *testing.T) {
	lo := mustParseTestLayout(t)

	lsViolations, symViolations := lo.VerifyCorrectness()
	if len(lsViolations) != 0 {
		t.Errorf("unexpected LS violations: %v", lsViolations)
	}

	if len(symViolations) != 0 {
		t.Errorf("unexpected symmetry violations: %v", symViolations)
	}

	if err := lo.VerifyPathMapCorrectness(); err != nil {
		t.Errorf("VerifyPathMapCorrectness: %v", err)
	}
}

func TestSwapDragsLayerSwitchCounterpart(t *testing.T) {
	lo := mustParseTestLayout(t)

	happened, err := lo.Swap(NewPosition(0, 0, 2), NewPosition(0, 0, 0))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if !happened {
		t.Fatalf("Swap: expected a swap to happen")
	}

	wantSeq(t, lo, keycode.LS(1), NewPosition(0, 0, 0))
	wantSeq(t, lo, keycode.A, NewPosition(0, 0, 2))
	wantSeq(t, lo, keycode.B, NewPosition(0, 0, 1))
	wantSeq(t, lo, keycode.C, NewPosition(0, 0, 3))
	wantSeq(t, lo, keycode.E, NewPosition(0, 0, 0), NewPosition(1, 0, 1))
	wantSeq(t, lo, keycode.D, NewPosition(0, 0, 0), NewPosition(1, 0, 2))
	wantSeq(t, lo, keycode.F, NewPosition(0, 0, 0), NewPosition(1, 0, 3))

	if err := lo.VerifyPathMapCorrectness(); err != nil {
		t.Errorf("VerifyPathMapCorrectness after swap: %v", err)
	}

	lsViolations, symViolations := lo.VerifyCorrectness()
	if len(lsViolations) != 0 || len(symViolations) != 0 {
		t.Errorf("unexpected violations after swap: ls=%v sym=%v", lsViolations, symViolations)
	}
}

func TestSwapSelfIsNoop(t *testing.T) {
	lo := mustParseTestLayout(t)

	happened, err := lo.Swap(NewPosition(0, 0, 0), NewPosition(0, 0, 0))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if happened {
		t.Fatalf("Swap: expected a self-swap to be a no-op")
	}

	wantSeq(t, lo, keycode.A, NewPosition(0, 0, 0))
}

func TestReplaceRejectsSinglePathKeycode(t *testing.T) {
	lo := mustParseTestLayout(t)

	err := lo.Replace(NewPosition(0, 0, 0), keycode.Z)
	if err != ErrReplaceWouldOrphan {
		t.Fatalf("Replace = %v, want ErrReplaceWouldOrphan", err)
	}
}

func TestReplaceBlankCellAlwaysSucceeds(t *testing.T) {
	lo, err := InitBlank(1, 2, 2)
	if err != nil {
		t.Fatalf("InitBlank: %v", err)
	}

	// Row-major index 0 on layer 0 is wired to LS1; index 1 is still NO.
	if err := lo.Replace(NewPosition(0, 0, 1), keycode.A); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	wantSeq(t, lo, keycode.A, NewPosition(0, 0, 1))
}

func TestInitBlankWiresLayerSwitch(t *testing.T) {
	lo, err := InitBlank(1, 2, 2)
	if err != nil {
		t.Fatalf("InitBlank: %v", err)
	}

	wantSeq(t, lo, keycode.LS(1), NewPosition(0, 0, 0))

	lsViolations, symViolations := lo.VerifyCorrectness()
	if len(lsViolations) != 0 || len(symViolations) != 0 {
		t.Errorf("unexpected violations: ls=%v sym=%v", lsViolations, symViolations)
	}
}

func TestNgramToSequencesCrossProduct(t *testing.T) {
	lo := mustParseTestLayout(t)

	seqs, ok := lo.NgramToSequences(ngram.New(keycode.A, keycode.B))
	if !ok {
		t.Fatalf("NgramToSequences: not ok")
	}

	if len(seqs) != 1 {
		t.Fatalf("len(seqs) = %d, want 1", len(seqs))
	}

	if seqs[0].Len() != 2 {
		t.Errorf("seqs[0].Len() = %d, want 2", seqs[0].Len())
	}
}

func TestNgramToSequencesUnreachableKeycodeFails(t *testing.T) {
	lo := mustParseTestLayout(t)

	if _, ok := lo.NgramToSequences(ngram.New(keycode.Z)); ok {
		t.Errorf("expected NgramToSequences to fail for an unplaced keycode")
	}
}

func TestSwapLSNoopWhenCounterpartImmoveable(t *testing.T) {
	s := "___Layer 0___\n" +
		"A_10 B_10 LS1_10 C_10\n" +
		"___Layer 1___\n" +
		"D_00 E_10 LST1_0_10 F_10\n"

	lo, err := ParseString(s, 1, 4)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	happened, err := lo.Swap(NewPosition(0, 0, 2), NewPosition(0, 0, 0))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if happened {
		t.Fatalf("Swap: expected a no-op against an immoveable counterpart")
	}

	wantSeq(t, lo, keycode.LS(1), NewPosition(0, 0, 2))
	wantSeq(t, lo, keycode.A, NewPosition(0, 0, 0))
	wantSeq(t, lo, keycode.D, NewPosition(0, 0, 2), NewPosition(1, 0, 0))
}

func TestSwapLSNoopWhenCounterpartSymmetric(t *testing.T) {
	s := "___Layer 0___\n" +
		"A_10 B_10 LS1_10 C_10\n" +
		"___Layer 1___\n" +
		"D_11 E_10 LST1_0_10 F_11\n"

	lo, err := ParseString(s, 1, 4)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	happened, err := lo.Swap(NewPosition(0, 0, 2), NewPosition(0, 0, 0))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if happened {
		t.Fatalf("Swap: expected a no-op against a symmetric counterpart")
	}

	wantSeq(t, lo, keycode.LS(1), NewPosition(0, 0, 2))
	wantSeq(t, lo, keycode.A, NewPosition(0, 0, 0))
	wantSeq(t, lo, keycode.D, NewPosition(0, 0, 2), NewPosition(1, 0, 0))
}

func TestSwapPanicsWhenLSCrossesLayers(t *testing.T) {
	lo := mustParseTestLayout(t)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Swap to panic on a cross-layer LS swap")
		}
	}()

	_, _ = lo.Swap(NewPosition(0, 0, 2), NewPosition(1, 0, 0))
}

func TestSwapPanicsWhenLSOnP2Side(t *testing.T) {
	lo := mustParseTestLayout(t)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Swap to panic when the LS cell is on the p2 side")
		}
	}()

	_, _ = lo.Swap(NewPosition(0, 0, 0), NewPosition(0, 0, 2))
}

func TestGenerateRandomValidSwapAvoidsLSTMarkers(t *testing.T) {
	lo := mustParseTestLayout(t)
	rng := deterministicRand(1)

	for i := 0; i < 50; i++ {
		p1, p2, err := lo.GenerateRandomValidSwap(rng)
		if err != nil {
			t.Fatalf("GenerateRandomValidSwap: %v", err)
		}

		c1, _ := lo.GetPosition(p1)
		c2, _ := lo.GetPosition(p2)

		if _, _, ok := c1.Value().IsLST(); ok {
			t.Errorf("drew an LST marker at %v", p1)
		}

		if _, _, ok := c2.Value().IsLST(); ok {
			t.Errorf("drew an LST marker at %v", p2)
		}
	}
}
