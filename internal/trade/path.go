package trade

import (
	"context"
	"fmt"
	"sort"

	"coinflow/internal/domain"
)

// marketLister is the slice of the exchange surface path resolution needs.
type marketLister interface {
	TradableMarkets(ctx context.Context) ([]domain.Market, error)
}

// ResolveConversionPath returns the ordered market chain converting from one
// currency to another on a single exchange, shortest chain first. The search
// runs over the cached market list; freezing the caller's vault around it and
// the subsequent hops keeps the view consistent.
func ResolveConversionPath(ctx context.Context, lister marketLister, from, to domain.CurrencyCode) ([]domain.Market, error) {
	if from == to {
		return nil, nil
	}

	markets, err := lister.TradableMarkets(ctx)
	if err != nil {
		return nil, err
	}

	adjacency := make(map[domain.CurrencyCode][]domain.Market)
	for _, m := range markets {
		adjacency[m.Base] = append(adjacency[m.Base], m)
		adjacency[m.Quote] = append(adjacency[m.Quote], m)
	}
	// Deterministic traversal regardless of exchange listing order.
	for cur := range adjacency {
		sort.Slice(adjacency[cur], func(i, j int) bool {
			return adjacency[cur][i].String() < adjacency[cur][j].String()
		})
	}

	type node struct {
		cur  domain.CurrencyCode
		path []domain.Market
	}
	visited := map[domain.CurrencyCode]bool{from: true}
	queue := []node{{cur: from}}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range adjacency[n.cur] {
			next := m.Opposite(n.cur)
			if visited[next] {
				continue
			}
			path := append(append([]domain.Market(nil), n.path...), m)
			if next == to {
				return path, nil
			}
			visited[next] = true
			queue = append(queue, node{cur: next, path: path})
		}
	}

	return nil, fmt.Errorf("%w: %s -> %s", domain.ErrNoConversionPath, from, to)
}
