package account

import (
	"context"
	"strings"
	"sync"
	"time"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// fakeStore is an in-memory Store used by synchronizer and resolver
// tests. It enforces the same uniqueness rules as the real store.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64

	accounts map[int64]*Account
	links    map[string]*IdentityLink

	updateCalls int
	updateErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[int64]*Account),
		links:    make(map[string]*IdentityLink),
	}
}

func linkKey(provider, subject string) string { return provider + "\x00" + subject }

// seed inserts an account directly, bypassing uniqueness checks.
func (f *fakeStore) seed(acct Account) *Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	acct.ID = f.nextID
	acct.CreatedAt = time.Now()
	acct.UpdatedAt = acct.CreatedAt
	f.accounts[acct.ID] = &acct
	return &acct
}

func (f *fakeStore) seedLink(provider, subject string, accountID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[linkKey(provider, subject)] = &IdentityLink{
		Provider: provider, Subject: subject, AccountID: accountID,
	}
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acct, ok := f.accounts[id]; ok {
		cp := *acct
		return &cp, nil
	}
	return nil, tcerr.New(tcerr.CodeNotFoundAccount, "account: account not found")
}

func (f *fakeStore) GetByUsername(_ context.Context, username string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.accounts {
		if acct.Username == username {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, tcerr.New(tcerr.CodeNotFoundAccount, "account: account not found")
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) ([]*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Account
	for _, acct := range f.accounts {
		if acct.Email != "" && strings.EqualFold(acct.Email, email) {
			cp := *acct
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, acct *Account) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Username == acct.Username {
			return nil, tcerr.Newf(tcerr.CodeConflictAlreadyExists,
				"account: username %q already exists", acct.Username)
		}
	}
	f.nextID++
	cp := *acct
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.accounts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) UpdateFlags(_ context.Context, id int64, staff, superuser bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	acct, ok := f.accounts[id]
	if !ok {
		return tcerr.Newf(tcerr.CodeNotFoundAccount, "account: no account with id %d", id)
	}
	acct.IsStaff = staff
	acct.IsSuperuser = superuser
	acct.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) GetLink(_ context.Context, provider, subject string) (*IdentityLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.links[linkKey(provider, subject)]; ok {
		cp := *link
		return &cp, nil
	}
	return nil, tcerr.New(tcerr.CodeNotFound, "account: no identity link")
}

func (f *fakeStore) CreateLink(_ context.Context, link *IdentityLink) (*IdentityLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := linkKey(link.Provider, link.Subject)
	if _, ok := f.links[key]; ok {
		return nil, tcerr.New(tcerr.CodeConflictAlreadyExists, "account: identity already linked")
	}
	cp := *link
	cp.CreatedAt = time.Now()
	f.links[key] = &cp
	out := cp
	return &out, nil
}
