package model

// Result holds the outcome of a task: either a value or the captured failure.
type Result struct {
	Value interface{}
	Err   error
}

// Failed reports whether the result carries an error.
func (r *Result) Failed() bool {
	return r != nil && r.Err != nil
}

// Output returns the value or the failure.
func (r *Result) Output() (interface{}, error) {
	if r == nil {
		return nil, nil
	}
	return r.Value, r.Err
}
