package directory

import "fmt"

const codeBadUserInput = "BAD_USER_INPUT"

// DuplicateNameError rejects a person whose name is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string { return "Name must be unique" }

// Extensions reports the GraphQL error extensions.
func (e *DuplicateNameError) Extensions() map[string]any {
	return map[string]any{"code": codeBadUserInput, "invalidArgs": e.Name}
}

// InvalidArgumentError rejects a malformed argument.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

func (e *InvalidArgumentError) Extensions() map[string]any {
	return map[string]any{"code": codeBadUserInput, "invalidArgs": e.Arg}
}
