package domain

// CheckAndSetDefaultVersion makes name the entry's default version and syncs
// the entry metadata from it.
//
// A hidden version is rejected with a ValidationError. An unknown name
// returns false and the entry unchanged.
func CheckAndSetDefaultVersion(e Entry, name string) (Entry, bool, error) {
	v, ok := e.Version(name)
	if !ok {
		return e, false, nil
	}
	if v.Hidden {
		return e, false, NewValidationError("defaultVersion", "cannot set default version to a hidden version")
	}
	out := e.Clone()
	out.DefaultVersion = v.Name
	return SyncMetadataWithDefault(out), true, nil
}

// SyncMetadataWithDefault copies the default version's description onto the
// entry. Authors are not copied; Entry.Authors reads them live.
func SyncMetadataWithDefault(e Entry) Entry {
	v, ok := e.Version(e.DefaultVersion)
	if !ok {
		return e
	}
	out := e.Clone()
	out.Description = v.Description
	return out
}

// RepairDefaultVersion clears a default that points at a missing or hidden
// version. It reports whether anything changed.
func RepairDefaultVersion(e Entry) (Entry, bool) {
	if e.DefaultVersion == "" {
		return e, false
	}
	v, ok := e.Version(e.DefaultVersion)
	if ok && !v.Hidden {
		return e, false
	}
	out := e.Clone()
	out.DefaultVersion = ""
	return out, true
}
