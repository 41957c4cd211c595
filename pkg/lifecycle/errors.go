package lifecycle

import "fmt"

// ValidationError reports invalid caller input: a malformed skill name or a
// bad relative path.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports an absent skill, archived entry, or file.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ConflictError reports a name collision: an online skill, an archived entry
// blocking creation, or a restore target that already exists.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// ArchivedSkillError reports an operation attempted against a skill that
// lives under the archive root. Archived skills are read-mostly; they must
// be restored before they can be edited or inspected as online skills.
type ArchivedSkillError struct {
	Name      string
	Operation string
}

func (e *ArchivedSkillError) Error() string {
	return fmt.Sprintf("Cannot %s archived skill %q; restore it first", e.Operation, e.Name)
}
