// Package identitykv persists identities, the staged-on-behalf-of slot
// and the per-site email choice in a kv.DB.
package identitykv

import (
	"encoding/json"
	"sync"

	"github.com/rodneysullivan/browserid/protocol"
	"github.com/rodneysullivan/browserid/storage/kv"
)

var (
	identityPrefix = []byte("identity/")
	sitePrefix     = []byte("site/")
	stagedKey      = []byte("staged-on-behalf-of")
)

func identityKey(email string) []byte {
	return append(append([]byte{}, identityPrefix...), email...)
}

func siteKey(origin string) []byte {
	return append(append([]byte{}, sitePrefix...), origin...)
}

// A Store keeps identities keyed by email.
type Store struct {
	db kv.DB
	// mu serializes read-modify-write sequences such as Logout.
	mu sync.Mutex
}

// New returns a Store backed by db.
func New(db kv.DB) *Store {
	return &Store{db: db}
}

// Identity returns the identity stored for email, or nil if there is
// none.
func (s *Store) Identity(email string) (*protocol.Identity, error) {
	buf, err := s.db.Get(identityKey(email))
	if err == s.db.ErrNotFound() {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	id := new(protocol.Identity)
	if err := json.Unmarshal(buf, id); err != nil {
		return nil, err
	}
	return id, nil
}

// PutIdentity stores id, replacing the identity with the same email.
func (s *Store) PutIdentity(id *protocol.Identity) error {
	buf, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.db.Put(identityKey(id.Email), buf)
}

// RemoveIdentity destroys the identity for email.
func (s *Store) RemoveIdentity(email string) error {
	return s.db.Delete(identityKey(email))
}

// Identities returns all stored identities ordered by email.
func (s *Store) Identities() ([]*protocol.Identity, error) {
	it := s.db.NewIterator(kv.BytesPrefix(identityPrefix))
	defer it.Release()
	var ids []*protocol.Identity
	for ok := it.First(); ok; ok = it.Next() {
		id := new(protocol.Identity)
		if err := json.Unmarshal(it.Value(), id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, it.Error()
}

// Logout destroys all identities together.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.db.NewIterator(kv.BytesPrefix(identityPrefix))
	b := s.db.NewBatch()
	for ok := it.First(); ok; ok = it.Next() {
		b.Delete(append([]byte{}, it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}
	return s.db.Write(b)
}

// StagedOnBehalfOf returns the origin that initiated the pending email
// confirmation, or "" if there is none.
func (s *Store) StagedOnBehalfOf() (string, error) {
	buf, err := s.db.Get(stagedKey)
	if err == s.db.ErrNotFound() {
		return "", nil
	}
	return string(buf), err
}

// SetStagedOnBehalfOf records origin as the initiator of a pending email
// confirmation.
func (s *Store) SetStagedOnBehalfOf(origin string) error {
	return s.db.Put(stagedKey, []byte(origin))
}

// ClearStagedOnBehalfOf forgets the pending confirmation's origin.
func (s *Store) ClearStagedOnBehalfOf() error {
	return s.db.Delete(stagedKey)
}

// SiteEmail returns the email last used to sign in to origin, or "".
func (s *Store) SiteEmail(origin string) (string, error) {
	buf, err := s.db.Get(siteKey(origin))
	if err == s.db.ErrNotFound() {
		return "", nil
	}
	return string(buf), err
}

// SetSiteEmail records email as the address used to sign in to origin.
func (s *Store) SetSiteEmail(origin, email string) error {
	return s.db.Put(siteKey(origin), []byte(email))
}
