package hook

import "sort"

// Spec declares a hook: its argument names and aggregation policy.
type Spec struct {
	Name        string   `yaml:"name" json:"name"`
	ArgNames    []string `yaml:"args" json:"args"`
	FirstResult bool     `yaml:"firstresult" json:"firstresult"`
}

// Declares reports whether the hook declares the argument name.
func (s *Spec) Declares(name string) bool {
	return contains(s.ArgNames, name)
}

// CheckArgs verifies that args provides every required name and, when declared
// is non-nil, that it does not carry names outside declared.
func CheckArgs(hookName string, declared, required []string, args Args) error {
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return NewArgumentError(hookName, "", name)
		}
	}
	if declared == nil {
		return nil
	}

	var unknown []string
	for name := range args {
		if !contains(declared, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return NewUnknownArgumentError(hookName, unknown)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
