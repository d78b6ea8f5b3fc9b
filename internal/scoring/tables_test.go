package scoring

import "testing"

func TestRawToBand(t *testing.T) {
	cases := []struct {
		table string
		raw   int
		want  float64
	}{
		{TableListening, 40, 9},
		{TableListening, 30, 7},
		{TableListening, 29, 6.5},
		{TableListening, 0, 0},
		{TableAcademicReading, 33, 7.5},
		{TableAcademicReading, 23, 6},
		{TableGeneralReading, 30, 6},
		{TableGeneralReading, 40, 9},
	}
	for _, tc := range cases {
		got, err := RawToBand(tc.table, tc.raw)
		if err != nil {
			t.Fatalf("RawToBand(%s,%d): %v", tc.table, tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("RawToBand(%s,%d): got %v want %v", tc.table, tc.raw, got, tc.want)
		}
	}
	if _, err := RawToBand("nope", 10); err == nil {
		t.Fatalf("expected unknown table error")
	}
	if _, err := RawToBand(TableListening, 41); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestScaleTo40(t *testing.T) {
	if got := ScaleTo40(10, 13); got != 31 {
		t.Fatalf("ScaleTo40(10,13): got %d want 31", got)
	}
	if got := ScaleTo40(41, 40); got != 40 {
		t.Fatalf("ScaleTo40 clamp: got %d", got)
	}
	if got := ScaleTo40(3, 0); got != 0 {
		t.Fatalf("ScaleTo40 zero total: got %d", got)
	}
}

func TestTableFor(t *testing.T) {
	if TableFor("listening", "general") != TableListening {
		t.Fatalf("listening table")
	}
	if TableFor("reading", "general") != TableGeneralReading {
		t.Fatalf("general reading table")
	}
	if TableFor("reading", "academic") != TableAcademicReading {
		t.Fatalf("academic reading table")
	}
}

func TestDescriptor(t *testing.T) {
	d, ok := Descriptor(CriterionLexicalResource, 6.5)
	if !ok || d == "" {
		t.Fatalf("Descriptor: expected band 6 text")
	}
	if _, ok := Descriptor(CriterionLexicalResource, 2); ok {
		t.Fatalf("Descriptor: expected miss below lowest level")
	}
	if txt := RubricText(SpeakingCriteria()); txt == "" {
		t.Fatalf("RubricText: empty")
	}
}
