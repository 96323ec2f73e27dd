package activity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBroadcasterSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	if b.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Count())
	}

	b.Unsubscribe(ch1)
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", b.Count())
	}

	b.Unsubscribe(ch2)
	if b.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Count())
	}
}

func TestBroadcasterAppend(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Append("Uploaded file: photo.jpg")

	select {
	case line := <-ch:
		if line != "Uploaded file: photo.jpg" {
			t.Errorf("unexpected line %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for line")
	}
}

func TestBroadcasterDropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overfill the subscriber buffer; Append must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Append("line")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a slow consumer")
	}
}

func TestFileLogAppendsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := NewFileLog(path)

	l.Append("Created folder: Notes")
	l.Append("Uploaded file: a.txt")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "Created folder: Notes") {
		t.Errorf("first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "Uploaded file: a.txt") {
		t.Errorf("second line %q", lines[1])
	}
}

func TestFileLogBestEffort(t *testing.T) {
	// Unwritable path: Append must swallow the failure.
	l := NewFileLog(filepath.Join(t.TempDir(), "missing-dir", "activity.log"))
	l.Append("Deleted: x") // must not panic or error
}

func TestFileLogTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := NewFileLog(path)

	for _, line := range []string{
		"Created folder: Notes",
		"Uploaded file: a.txt",
		"Opened folder: Notes",
		"Went back",
		"Deleted: a.txt",
	} {
		l.Append(line)
	}

	lines, err := l.Tail(3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	for i, want := range []string{"Opened folder: Notes", "Went back", "Deleted: a.txt"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("tail[%d] = %q, want suffix %q", i, lines[i], want)
		}
	}

	all, err := l.Tail(100)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("expected all 5 lines, got %d", len(all))
	}
}

func TestFileLogTailMissingFile(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "never-written.log"))

	lines, err := l.Tail(10)
	if err != nil {
		t.Fatalf("Tail on missing file: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %v", lines)
	}
}

func TestMultiFansOut(t *testing.T) {
	b1 := NewBroadcaster()
	b2 := NewBroadcaster()
	ch1 := b1.Subscribe()
	ch2 := b2.Subscribe()
	defer b1.Unsubscribe(ch1)
	defer b2.Unsubscribe(ch2)

	Multi(b1, b2).Append("Went back")

	for _, ch := range []chan string{ch1, ch2} {
		select {
		case line := <-ch:
			if line != "Went back" {
				t.Errorf("unexpected line %q", line)
			}
		case <-time.After(time.Second):
			t.Fatal("sink did not receive line")
		}
	}
}
