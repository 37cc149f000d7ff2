package accounts

import (
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
)

// Account is a validated entry: a normalized handle plus its credentials.
type Account struct {
	Handle   domain.Handle
	Instance string
	JWT      string
}

// Accounts is the parsed file: every account, and the one to start with.
type Accounts struct {
	List   []Account
	Active domain.Handle // empty when nobody is logged in
}

// Find returns the account with handle h.
func (a Accounts) Find(h domain.Handle) (Account, bool) {
	for _, acc := range a.List {
		if acc.Handle == h {
			return acc, true
		}
	}
	return Account{}, false
}

// Map validates a File. Bare handles are qualified with their own instance.
func Map(f File) (Accounts, error) {
	out := Accounts{List: make([]Account, 0, len(f.Accounts))}
	seen := make(map[domain.Handle]struct{}, len(f.Accounts))

	for i, e := range f.Accounts {
		if e.Instance == "" {
			return Accounts{}, fmt.Errorf("account #%d: instance is required", i+1)
		}
		h, err := domain.ParseHandle(e.Handle, e.Instance)
		if err != nil {
			return Accounts{}, fmt.Errorf("account #%d: %w", i+1, err)
		}
		if e.JWT == "" {
			return Accounts{}, fmt.Errorf("account %s: jwt is required", h)
		}
		if _, dup := seen[h]; dup {
			return Accounts{}, fmt.Errorf("account %s is listed twice", h)
		}
		seen[h] = struct{}{}

		out.List = append(out.List, Account{Handle: h, Instance: e.Instance, JWT: e.JWT})
	}

	if f.Active == "" {
		return out, nil
	}

	active, err := domain.ParseHandle(f.Active, "")
	if err != nil {
		return Accounts{}, fmt.Errorf("active account: %w", err)
	}
	if _, ok := out.Find(active); !ok {
		return Accounts{}, errors.New("active account " + active.String() + " is not listed")
	}
	out.Active = active
	return out, nil
}

// Read loads and maps the file in one go.
func (l *Loader) Read() (Accounts, error) {
	f, err := l.Load()
	if err != nil {
		return Accounts{}, err
	}
	return Map(f)
}
