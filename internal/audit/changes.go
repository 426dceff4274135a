package audit

// CaptureChanges diffs two snapshots over the tracked field list and returns
// the changes in tracked-field order.
//
// A nil old snapshot is the creation case: every tracked field is reported
// with a nil old value, which captures full state at creation without
// special-casing it downstream. When both snapshots are present, a field is
// reported only if its serialized forms differ, so representations that
// serialize identically never produce spurious changes.
func CaptureChanges(cfg *Config, old, current Snapshot, trackedFields []string) []FieldChange {
	if cfg != nil && !cfg.LogFieldChanges {
		return nil
	}

	var changes []FieldChange
	for _, field := range trackedFields {
		if cfg != nil && cfg.IsSensitiveField(field) {
			continue
		}

		newValue := SerializeValue(current.Field(field))
		if old == nil {
			changes = append(changes, FieldChange{Field: field, NewValue: newValue})
			continue
		}

		oldValue := SerializeValue(old.Field(field))
		if !equalSerialized(oldValue, newValue) {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}
	return changes
}

func equalSerialized(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
