package spinlog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func entry(id, product string, ts time.Time) Entry {
	return Entry{ID: id, ProductID: product, ProductName: "Prize " + product, Index: 1, Angle: 1192.5, Timestamp: ts, Source: "server"}
}

func TestWriter_DrainsOnClose(t *testing.T) {
	var mu sync.Mutex
	var got []string
	slow := SinkFunc(func(e Entry) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, e.ID)
		mu.Unlock()
		return nil
	})
	w := NewWriter(zerolog.Nop(), 64, slow)
	now := time.Now()
	for i := 0; i < 20; i++ {
		if !w.Submit(entry(string(rune('a'+i)), "p", now)) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 || got[0] != "a" || got[19] != "t" {
		t.Errorf("drained %v", got)
	}
	if w.Submit(entry("late", "p", now)) {
		t.Error("submit after close accepted")
	}
	if w.Dropped() != 1 {
		t.Errorf("dropped %d want 1", w.Dropped())
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestWriter_FullQueueDoesNotBlock(t *testing.T) {
	block := make(chan struct{})
	w := NewWriter(zerolog.Nop(), 1, SinkFunc(func(Entry) error {
		<-block
		return nil
	}))
	now := time.Now()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			w.Submit(entry("x", "p", now))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	if w.Dropped() == 0 {
		t.Error("expected drops with a stalled sink")
	}
	close(block)
	w.Close()
}

func TestSQLiteIndex_RecentAndCounts(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "spins.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, p := range []string{"a", "b", "a", "a"} {
		if err := idx.Write(entry(string(rune('1'+i)), p, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	recent, err := idx.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ID != "4" || recent[1].ID != "3" {
		t.Errorf("recent %+v", recent)
	}
	if !recent[0].Timestamp.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("timestamp %v", recent[0].Timestamp)
	}
	counts, err := idx.CountByProduct(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["a"] != 3 || counts["b"] != 1 {
		t.Errorf("counts %v", counts)
	}
}

func TestArchive_HourlyFiles(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir)
	h1 := time.Date(2026, 5, 1, 10, 15, 0, 0, time.UTC)
	h2 := h1.Add(time.Hour)
	for _, e := range []Entry{entry("1", "a", h1), entry("2", "b", h1), entry("3", "a", h2)} {
		if err := a.Write(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	// reopen the first hour: a second zstd frame is appended
	a2 := NewArchive(dir)
	if err := a2.Write(entry("4", "c", h1)); err != nil {
		t.Fatal(err)
	}
	a2.Close()

	if filepath.Base(a.Path(h1)) != "spins-2026050110.jsonl.zst" {
		t.Errorf("path %s", a.Path(h1))
	}
	first, err := ReadArchive(a.Path(h1))
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 || first[0].ID != "1" || first[2].ID != "4" {
		t.Errorf("hour 1 entries %+v", first)
	}
	second, err := ReadArchive(a.Path(h2))
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 || second[0].ProductName != "Prize a" {
		t.Errorf("hour 2 entries %+v", second)
	}
}

func TestWriter_FansOutToSinks(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenSQLite(filepath.Join(dir, "spins.db"))
	if err != nil {
		t.Fatal(err)
	}
	arch := NewArchive(filepath.Join(dir, "archive"))
	w := NewWriter(zerolog.Nop(), 8, idx, arch)
	ts := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	w.Submit(entry("s1", "a", ts))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadArchive(arch.Path(ts))
	if err != nil || len(got) != 1 {
		t.Fatalf("archive %v %v", got, err)
	}
	// the index was closed by the writer; reopen to read
	idx2, err := OpenSQLite(filepath.Join(dir, "spins.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()
	recent, _ := idx2.Recent(context.Background(), 10)
	if len(recent) != 1 || recent[0].ID != "s1" {
		t.Errorf("index %+v", recent)
	}
}
