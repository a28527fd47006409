package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Name", "Pity", "Banner"}
	rows := [][]string{
		{"Diluc", "74", "Permanent Wish"},
		{"Skyward Harp", "8", "Weapon"},
	}
	rightAlign := map[int]bool{1: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Name          Pity  Banner" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Diluc           74  Permanent Wish" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Skyward Harp     8  Weapon" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Name", "Pity"}, [][]string{{"胡桃", "1"}, {"Qiqi", "90"}}, map[int]bool{1: true})
	if lines[1] != "胡桃     1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Qiqi    90" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Wolf's Gravestone", 8); displayWidth(got) > 8 {
		t.Fatalf("truncated value too wide: %q", got)
	}
	if got := truncate("Amber", 8); got != "Amber" {
		t.Fatalf("short value changed: %q", got)
	}
	if got := truncate("Amber", 0); got != "Amber" {
		t.Fatalf("zero width must not truncate: %q", got)
	}
}
