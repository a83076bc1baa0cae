package service

import "ordsnap/internal/services/harvest/domain"

// FilterByThreshold returns the wallets holding at least min identifiers.
// The comparison is inclusive: a wallet with exactly min identifiers is kept.
// Pure projection; the input map is not mutated
func FilterByThreshold(m domain.HolderMap, min int) domain.HolderMap {
	out := domain.HolderMap{}
	for wallet, ids := range m {
		if len(ids) >= min {
			out[wallet] = ids
		}
	}
	return out
}
