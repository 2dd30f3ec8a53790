package triage

import (
	"context"
	"errors"
	"net"
	"strings"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

var (
	// ErrAccountNotFound is reported by the bug tracker for unknown user names
	ErrAccountNotFound = errors.New("account does not exist")
	// ErrInvalidBug is reported by the bug tracker for unknown bug ids
	ErrInvalidBug = errors.New("bug does not exist")
)

// AccountLookup checks that bug tracker accounts exist. LookupUsers fails if any of
// the names is unknown.
type AccountLookup interface {
	LookupUsers(ctx context.Context, names []string) error
}

// VerifyEmails returns the sorted addresses that have no bug tracker account.
//
// All addresses are looked up in one query first; only when that fails are they
// checked one at a time to find the culprits.
func VerifyEmails(ctx context.Context, lookup AccountLookup, addresses f.Set[string]) ([]string, error) {
	invalid := f.NewSet[string]()
	names := make([]string, 0, len(addresses))
	for _, address := range f.Sorted(addresses) {
		if strings.TrimSpace(address) == "" {
			invalid.Add(address)
			continue
		}
		names = append(names, address)
	}
	if len(names) == 0 {
		return f.Sorted(invalid), nil
	}

	if err := lookup.LookupUsers(ctx, names); err == nil {
		return f.Sorted(invalid), nil
	} else if IsTimeout(err) {
		return nil, err
	}

	for _, name := range names {
		err := lookup.LookupUsers(ctx, []string{name})
		switch {
		case err == nil:
		case errors.Is(err, ErrAccountNotFound):
			invalid.Add(name)
		default:
			return nil, err
		}
	}
	return f.Sorted(invalid), nil
}

// IsTimeout reports whether err was caused by a transport timeout or a cancelled context
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
