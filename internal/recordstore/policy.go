package recordstore

import "fmt"

// ReadPolicy decides what FetchAll does when the store cannot be read.
type ReadPolicy string

const (
	// FailOpen logs the failure and reports an empty collection.
	FailOpen ReadPolicy = "fail-open"
	// FailClosed returns the failure to the caller.
	FailClosed ReadPolicy = "fail-closed"
)

// ParseReadPolicy accepts "fail-open" and "fail-closed".
func ParseReadPolicy(s string) (ReadPolicy, error) {
	switch p := ReadPolicy(s); p {
	case FailOpen, FailClosed:
		return p, nil
	}
	return "", fmt.Errorf("unknown read policy %q (want %s or %s)", s, FailOpen, FailClosed)
}

func (p ReadPolicy) String() string { return string(p) }

// Set implements flag.Value.
func (p *ReadPolicy) Set(s string) error {
	v, err := ParseReadPolicy(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
