package dao

// Filter parameter names understood by session record stores.
const (
	ParameterState    = "State"
	ParameterRunID    = "RunID"
	ParameterFunction = "Function"
)

type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
