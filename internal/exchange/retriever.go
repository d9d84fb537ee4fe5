package exchange

import (
	"fmt"

	"coinflow/internal/domain"
)

// SelectionOrder controls the ordering of retrieved exchange handles.
type SelectionOrder int

const (
	// OrderInitial keeps the original handle order, filtering to the
	// requested names.
	OrderInitial SelectionOrder = iota
	// OrderSelection follows the caller-given name order, expanding each
	// name to all matching accounts.
	OrderSelection
)

// Retriever selects exchange handles by name over an externally-owned slice.
// It never copies or mutates the handles; all operations are read-only.
type Retriever struct {
	exchanges []Exchange
}

// NewRetriever creates a retriever over the given handles.
func NewRetriever(exchanges []Exchange) Retriever {
	return Retriever{exchanges: exchanges}
}

// UniqueCandidate finds the single account matching the selector. It fails
// when several accounts match a platform-only selector, or when none match.
func (r Retriever) UniqueCandidate(name domain.PrivateExchangeName) (Exchange, error) {
	var found Exchange
	for _, e := range r.exchanges {
		if !name.Matches(e.Account()) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: several accounts found for %s and no key name given to disambiguate",
				domain.ErrAmbiguousExchange, name)
		}
		found = e
	}
	if found == nil {
		return nil, fmt.Errorf("%w: unable to retrieve private key for %s", domain.ErrExchangeNotFound, name)
	}
	return found, nil
}

// SelectedExchanges resolves a name list to handles. An empty list selects
// all handles in their original order. With OrderSelection, every requested
// name must match at least one account.
func (r Retriever) SelectedExchanges(order SelectionOrder, names []domain.PrivateExchangeName) ([]Exchange, error) {
	if len(names) == 0 {
		out := make([]Exchange, len(r.exchanges))
		copy(out, r.exchanges)
		return out, nil
	}

	switch order {
	case OrderInitial:
		var out []Exchange
		for _, e := range r.exchanges {
			for _, name := range names {
				if name.Matches(e.Account()) {
					out = append(out, e)
					break
				}
			}
		}
		return out, nil

	case OrderSelection:
		var out []Exchange
		for _, name := range names {
			matched := false
			for _, e := range r.exchanges {
				if name.Matches(e.Account()) {
					out = append(out, e)
					matched = true
				}
			}
			if !matched {
				return nil, fmt.Errorf("%w: %s", domain.ErrExchangeNotFound, name)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown selection order %d", order)
}

// AtMostOneAccountSelected resolves names in caller order, keeping only the
// first account seen per platform. Trades targeting "the exchange" rather
// than a specific account go through this to avoid double execution on
// multi-account platforms.
func (r Retriever) AtMostOneAccountSelected(names []domain.PrivateExchangeName) ([]Exchange, error) {
	selected, err := r.SelectedExchanges(OrderSelection, names)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.ExchangeName]bool, len(selected))
	out := selected[:0]
	for _, e := range selected {
		platform := e.Account().Platform
		if seen[platform] {
			continue
		}
		seen[platform] = true
		out = append(out, e)
	}
	return out, nil
}

// UniquePublic maps the deduplicated selection to one handle per platform,
// for public-data queries that do not depend on the account.
func (r Retriever) UniquePublic(names []domain.PrivateExchangeName) ([]Exchange, error) {
	return r.AtMostOneAccountSelected(names)
}
