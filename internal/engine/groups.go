package engine

// fingerprinted pairs a record with its computed hash for the grouping
// stages.
type fingerprinted struct {
	record      Record
	fingerprint Fingerprint
}

// buildExactGroups partitions records by fingerprint equality. Any
// fingerprint shared by two or more records becomes an exact group; records
// with unique fingerprints are returned as the remainder for near-duplicate
// analysis. First-seen order is preserved both inside groups and across the
// returned group list, because retention policies have positional semantics.
func buildExactGroups(records []fingerprinted) ([]DuplicateGroup, []fingerprinted) {
	byHash := make(map[Fingerprint][]fingerprinted, len(records))
	var order []Fingerprint
	for _, r := range records {
		if _, seen := byHash[r.fingerprint]; !seen {
			order = append(order, r.fingerprint)
		}
		byHash[r.fingerprint] = append(byHash[r.fingerprint], r)
	}

	var groups []DuplicateGroup
	var remainder []fingerprinted
	for _, fp := range order {
		bucket := byHash[fp]
		if len(bucket) < 2 {
			remainder = append(remainder, bucket[0])
			continue
		}
		members := make([]Record, len(bucket))
		for i, r := range bucket {
			members[i] = r.record
		}
		groups = append(groups, DuplicateGroup{
			Kind:        GroupExact,
			Fingerprint: fp,
			Members:     members,
		})
	}
	return groups, remainder
}
