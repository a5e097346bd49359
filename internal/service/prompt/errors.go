package prompt

import "errors"

var (
	ErrTitleRequired        = errors.New("prompt title required")
	ErrPromptNotFound       = errors.New("prompt not found")
	ErrVersionNotFound      = errors.New("prompt version not found")
	ErrPromptNotDeleted     = errors.New("prompt is not deleted")
	ErrNoFieldsToUpdate     = errors.New("no prompt fields to update")
	ErrDuplicatePlaceholder = errors.New("variable placeholder already in use")
	ErrInvalidBlock         = errors.New("invalid content block")
	ErrVariableNotFound     = errors.New("prompt variable not found")
)
