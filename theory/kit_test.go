package theory

import "testing"

func TestDrumKitSlots(t *testing.T) {
	kit := GetKit("rd8")
	p, err := kit.NameAndFrequencyFor(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if p.MIDI != 40 || p.Name != "snare:40" {
		t.Fatalf("rd8 snare = %+v", p)
	}

	// degrees wrap, octave is ignored
	q, _ := kit.NameAndFrequencyFor(17, 9)
	if q.MIDI != p.MIDI {
		t.Fatalf("degree 17 = %+v", q)
	}
	r, _ := kit.NameAndFrequencyFor(-1, 0)
	if r.Name != "high-conga:63" {
		t.Fatalf("degree -1 = %+v", r)
	}
}

func TestGetKitFallsBackToGM(t *testing.T) {
	if GetKit("nope").Name != "General MIDI" {
		t.Fatal("unknown kit did not fall back to GM")
	}
	for _, name := range KitNames() {
		if _, ok := Kits[name]; !ok {
			t.Fatalf("KitNames lists missing kit %q", name)
		}
	}
	if SlotName(0) != "kick" || SlotName(16) != "kick" {
		t.Fatal("SlotName does not wrap")
	}
}
