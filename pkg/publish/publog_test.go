package publish

import (
	"testing"
)

func TestLogAppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	l, err := OpenLog(dir)
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	if err := l.Append("demo-lab", 3, "success"); err != nil {
		t.Fatal(err)
	}
	if err := l.Append("demo-lab", 0, "asset_missing"); err != nil {
		t.Fatal(err)
	}

	entries, err := l.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Errorf("sequence numbers = %d, %d", entries[0].Seq, entries[1].Seq)
	}
	if entries[0].Slug != "demo-lab" || entries[0].Devices != 3 || entries[0].Status != "success" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries need distinct non-empty ids")
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening resumes the sequence from the recovered tail.
	l2, err := OpenLog(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	if err := l2.Append("other-room", 1, "success"); err != nil {
		t.Fatal(err)
	}
	entries, err = l2.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries after reopen = %d, want 3", len(entries))
	}
	if entries[2].Seq != 3 {
		t.Errorf("resumed seq = %d, want 3", entries[2].Seq)
	}
}

func TestOpenLogEmptyDir(t *testing.T) {
	l, err := OpenLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	defer l.Close()

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("fresh log has %d entries", len(entries))
	}
}
