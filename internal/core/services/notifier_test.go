package services

import (
	"fmt"
	"testing"
)

func TestNotificationBufferKeepsNewest(t *testing.T) {
	b := NewNotificationBuffer(3)
	for i := 0; i < 5; i++ {
		b.Notify(LevelInfo, fmt.Sprintf("n%d", i), "")
	}

	got := b.Drain()
	if len(got) != 3 {
		t.Fatalf("Drain() returned %d, want 3", len(got))
	}
	for i, want := range []string{"n2", "n3", "n4"} {
		if got[i].Title != want {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Title, want)
		}
	}
	if len(b.Drain()) != 0 {
		t.Error("Drain() should empty the buffer")
	}
}

func TestUserMessageStripsKind(t *testing.T) {
	if got := userMessage(storageErr("get candidate", fmt.Errorf("boom"))); got != "get candidate: boom" {
		t.Errorf("userMessage() = %q", got)
	}
	if got := userMessage(nil); got != "" {
		t.Errorf("userMessage(nil) = %q", got)
	}
}
