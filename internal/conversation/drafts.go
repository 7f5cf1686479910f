package conversation

import (
	"sync"
	"time"
)

// draftTTL bounds how long occurrence details wait for their category choice.
const draftTTL = 15 * time.Minute

// details are the free-form parts of an occurrence. They stay on the server while the
// category is chosen since callback data only carries the category and the contract.
type details struct {
	notes   string
	urgency string
}

type draft struct {
	contract  string
	details   details
	expiresAt time.Time
}

// draftStore keeps at most one pending draft per user.
type draftStore struct {
	mu     sync.Mutex
	drafts map[int64]draft
	now    func() time.Time
}

func newDraftStore(now func() time.Time) *draftStore {
	return &draftStore{drafts: make(map[int64]draft), now: now}
}

// put replaces the user's draft. Empty details only clear it.
func (s *draftStore) put(userID int64, contract string, d details) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d == (details{}) {
		delete(s.drafts, userID)
		return
	}
	s.drafts[userID] = draft{contract: contract, details: d, expiresAt: s.now().Add(draftTTL)}
}

// take removes the user's draft and returns its details when it is live and was made for
// the same contract.
func (s *draftStore) take(userID int64, contract string) details {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.drafts[userID]
	if !ok {
		return details{}
	}
	delete(s.drafts, userID)

	if pending.contract != contract || !s.now().Before(pending.expiresAt) {
		return details{}
	}
	return pending.details
}
