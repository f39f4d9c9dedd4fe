package domain

// Version lifecycle commands. Each takes a version by value and returns the
// next state; the argument is never modified.
//
// frozen and hidden are independent flags. While frozen, the reference and
// dirty bit are locked and every owned source file is frozen too.

// FreezeWithoutFilesReason is the reason given when freezing an empty version.
const FreezeWithoutFilesReason = "cannot freeze versions with no files"

// Freeze locks the version and cascades frozen=true to its source files.
func Freeze(v Version) (Version, error) {
	if len(v.SourceFiles) == 0 {
		return v, NewValidationError("frozen", FreezeWithoutFilesReason)
	}
	out := v.Clone()
	out.Frozen = true
	for i := range out.SourceFiles {
		out.SourceFiles[i].Frozen = true
	}
	return out, nil
}

// Unfreeze is always allowed and un-cascades the source files.
func Unfreeze(v Version) Version {
	out := v.Clone()
	out.Frozen = false
	for i := range out.SourceFiles {
		out.SourceFiles[i].Frozen = false
	}
	return out
}

func SetFrozen(v Version, frozen bool) (Version, error) {
	if frozen {
		return Freeze(v)
	}
	return Unfreeze(v), nil
}

func SetHidden(v Version, hidden bool) Version {
	out := v.Clone()
	out.Hidden = hidden
	return out
}

// SetDirtyBit is a no-op on frozen versions.
func SetDirtyBit(v Version, dirty bool) Version {
	if v.Frozen {
		return v
	}
	out := v.Clone()
	out.DirtyBit = dirty
	return out
}

// SetReference is a no-op on frozen versions.
func SetReference(v Version, ref string, refType ReferenceType) Version {
	if v.Frozen {
		return v
	}
	out := v.Clone()
	out.Reference = ref
	out.ReferenceType = refType
	return out
}

// AddSourceFile attaches a file. Frozen versions reject new files.
func AddSourceFile(v Version, f SourceFile) (Version, error) {
	if v.Frozen {
		return v, NewValidationError("sourceFiles", "version %s is frozen", v.Name)
	}
	for _, existing := range v.SourceFiles {
		if existing.Path == f.Path {
			return v, NewValidationError("sourceFiles", "duplicate path %s", f.Path)
		}
	}
	out := v.Clone()
	f.Frozen = false
	out.SourceFiles = append(out.SourceFiles, f)
	return out, nil
}

// VersionUpdate carries the user-editable fields of a version. Nil means unchanged.
type VersionUpdate struct {
	Hidden       *bool         `json:"hidden,omitempty"`
	Frozen       *bool         `json:"frozen,omitempty"`
	Reference    *string       `json:"reference,omitempty"`
	DoiSelection *DoiInitiator `json:"doiSelection,omitempty"`
}

// UpdateByUser applies hidden and DOI selection unconditionally. Reference and
// frozen changes apply only while the version is not yet frozen, and a
// request to freeze a version without files still fails.
func UpdateByUser(v Version, u VersionUpdate) (Version, error) {
	out := v.Clone()

	if u.Hidden != nil {
		out.Hidden = *u.Hidden
	}
	if u.DoiSelection != nil {
		sel, err := ParseDoiInitiator(string(*u.DoiSelection))
		if err != nil {
			return v, err
		}
		if _, ok := out.DOIs[sel]; !ok {
			return v, NewValidationError("doiSelection", "version %s has no %s DOI", v.Name, sel)
		}
		out.DoiSelection = &sel
	}

	if v.Frozen {
		return out, nil
	}

	if u.Reference != nil {
		out = SetReference(out, *u.Reference, out.ReferenceType)
	}
	if u.Frozen != nil {
		next, err := SetFrozen(out, *u.Frozen)
		if err != nil {
			return v, err
		}
		out = next
	}
	return out, nil
}
