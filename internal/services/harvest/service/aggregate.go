package service

import (
	"encoding/json"

	pstrings "ordsnap/internal/platform/strings"
	"ordsnap/internal/services/harvest/domain"
)

// Aggregate merges bitmap records into a copy of base. Identifiers union with
// set semantics, so an id present in both sources appears once. Records whose
// identifier field is not a JSON string array are skipped with a warning;
// skipped is the count of such records. The input map is not mutated
func (s *Service) Aggregate(base domain.HolderMap, recs []domain.BitmapRecord) (domain.HolderMap, int) {
	out := make(domain.HolderMap, len(base))
	for k, v := range base {
		out[k] = append([]string(nil), v...)
	}

	skipped := 0
	for _, r := range recs {
		wallet := pstrings.Trimmed(r.Wallet)
		if wallet == "" {
			skipped++
			s.log.Warn().Msg("bitmap record without wallet, skipping")
			continue
		}
		var ids []string
		if err := json.Unmarshal(r.InscriptionIDs, &ids); err != nil {
			skipped++
			s.log.Warn().Str("wallet", wallet).Msg("bitmap identifiers not a list, skipping record")
			continue
		}
		out[wallet] = unionIDs(out[wallet], ids)
	}
	return out, skipped
}

// unionIDs appends the ids from add that existing does not already contain,
// preserving first-seen order
func unionIDs(existing, add []string) []string {
	if len(add) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing)+len(add))
	for _, id := range existing {
		seen[id] = true
	}
	out := existing
	for _, id := range add {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
