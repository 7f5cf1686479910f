package conversation

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	t.Parallel()
	locks := newKeyedMutex()

	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(42)
			defer unlock()

			current := running.Add(1)
			for {
				seen := maxRunning.Load()
				if current <= seen || maxRunning.CompareAndSwap(seen, current) {
					break
				}
			}
			running.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Zero(t, locks.size(), "released entries are dropped")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	t.Parallel()
	locks := newKeyedMutex()

	unlockA := locks.lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock(2)
		unlockB()
		close(done)
	}()
	<-done

	require.Equal(t, 1, locks.size())
	unlockA()
	assert.Zero(t, locks.size())
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		name string
		args string
		ok   bool
	}{
		{"/start", "/start", "", true},
		{"/login@RubyBot a1", "/login", "a1", true},
		{"/status   123456  ", "/status", "123456", true},
		{"/gerenciar\nABCD1234 resolvido", "/gerenciar", "ABCD1234 resolvido", true},
		{"problema elétrico", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			name, args, ok := parseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestParseStatusWord(t *testing.T) {
	t.Parallel()

	for word, expected := range map[string]string{
		"Resolvido": "resolved", "ATUADO": "resolved", "devolutiva": "dismissed", "pendente": "pending",
	} {
		status, ok := parseStatusWord(word)
		require.True(t, ok, word)
		assert.Equal(t, expected, string(status))
	}

	_, ok := parseStatusWord("talvez")
	assert.False(t, ok)
}

func TestSplitFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args, first, rest string
	}{
		{"", "", ""},
		{"123456", "123456", ""},
		{"  123456   poste   caído ", "123456", "poste   caído"},
		{"123456\ncabo rompido", "123456", "cabo rompido"},
	}

	for _, tt := range tests {
		first, rest := splitFirst(tt.args)
		assert.Equal(t, tt.first, first, tt.args)
		assert.Equal(t, tt.rest, rest, tt.args)
	}
}

func TestDraftStore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 18, 8, 0, 0, 0, time.UTC)
	drafts := newDraftStore(func() time.Time { return now })
	urgent := details{notes: "poste caído", urgency: "urgent"}

	drafts.put(1, "1234", urgent)
	assert.Equal(t, urgent, drafts.take(1, "1234"))
	assert.Equal(t, details{}, drafts.take(1, "1234"), "taken once")

	drafts.put(1, "1234", urgent)
	drafts.put(1, "1234", details{})
	assert.Equal(t, details{}, drafts.take(1, "1234"), "empty details clear the draft")

	drafts.put(2, "", urgent)
	now = now.Add(draftTTL)
	assert.Equal(t, details{}, drafts.take(2, ""), "expired")
}
