package quality

import "testing"

func TestLabelToQuality_SM2Good(t *testing.T) {
	q, err := LabelToQuality("good", "sm2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != 3 {
		t.Fatalf("expected quality 3, got %d", q)
	}
}

func TestLabelToQuality_FSRSAgainThenGood(t *testing.T) {
	again, err := LabelToQuality("again", "fsrs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != int(Again) {
		t.Fatalf("expected Again(0), got %d", again)
	}

	good, err := LabelToQuality("good", "fsrs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if good != int(Good) {
		t.Fatalf("expected Good(2), got %d", good)
	}
}

func TestLabelToQuality_ClearLabel(t *testing.T) {
	for _, label := range []string{"not_set", "clear"} {
		q, err := LabelToQuality(label, "sm2")
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", label, err)
		}
		if q != NotSet {
			t.Fatalf("expected NotSet for %q, got %d", label, q)
		}
	}
}

func TestLabelToQuality_UnknownLabel(t *testing.T) {
	if _, err := LabelToQuality("bogus", "sm2"); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

func TestBoundsFor(t *testing.T) {
	lo, hi := BoundsFor("sm2")
	if lo != 0 || hi != 5 {
		t.Fatalf("sm2 bounds = (%d,%d), want (0,5)", lo, hi)
	}
	for _, tech := range []string{"fsrs", "motor_skills", "metronome", "daily_practice", "custom"} {
		lo, hi := BoundsFor(tech)
		if lo != 0 || hi != 3 {
			t.Fatalf("%s bounds = (%d,%d), want (0,3)", tech, lo, hi)
		}
	}
}

func TestQualityToFSRSRatingSM2_RoundTripGroups(t *testing.T) {
	cases := map[int]Rating{0: Again, 1: Again, 2: Hard, 3: Good, 4: Easy, 5: Easy}
	for q, want := range cases {
		if got := QualityToFSRSRatingSM2(q); got != want {
			t.Errorf("QualityToFSRSRatingSM2(%d) = %v, want %v", q, got, want)
		}
	}
}

func TestQualityToFSRSRatingDirect_Identity(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		got, err := QualityToFSRSRatingDirect(int(r))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != r {
			t.Errorf("QualityToFSRSRatingDirect(%d) = %v, want %v", int(r), got, r)
		}
	}
}

func TestFSRSRatingToQualitySM2_InGroup(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		q := FSRSRatingToQualitySM2(r)
		if QualityToFSRSRatingSM2(q) != r {
			t.Errorf("FSRSRatingToQualitySM2(%v) = %d does not map back to %v via SM2 grouping", r, q, r)
		}
	}
}

func TestIs4Value(t *testing.T) {
	if Is4Value("sm2") {
		t.Error("sm2 should not be 4-value")
	}
	if !Is4Value("fsrs") {
		t.Error("fsrs should be 4-value")
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	if err := Validate(6, "sm2"); err == nil {
		t.Error("expected error for quality 6 on sm2 scale")
	}
	if err := Validate(4, "fsrs"); err == nil {
		t.Error("expected error for quality 4 on fsrs scale")
	}
}
