package ledger

import "ledger/domain/entity"

// Reindex returns the id of the entry that becomes the report's current
// status once the entries in deleted are removed: the survivor latest in
// (CreatedAt, Seq) order, or nil when nothing survives. The result does not
// depend on the order of entries.
func Reindex(entries []*entity.Progress, deleted map[string]struct{}) *string {
	var latest *entity.Progress
	for _, p := range entries {
		if _, gone := deleted[p.ID]; gone {
			continue
		}
		if latest == nil || p.After(latest) {
			latest = p
		}
	}
	if latest == nil {
		return nil
	}
	id := latest.ID
	return &id
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
