package criteria

import (
	"github.com/viant/advice/model"
	"github.com/viant/advice/service/dao"
)

// Match reports whether the record satisfies every parameter. Unknown
// parameter names are ignored.
func Match(record *model.Record, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		var actual string
		switch parameter.Name {
		case dao.ParameterState:
			actual = record.State
		case dao.ParameterRunID:
			actual = record.RunID
		case dao.ParameterFunction:
			actual = record.Function
		default:
			continue
		}
		if !matches(actual, parameter.Value) {
			return false
		}
	}
	return true
}

func matches(actual string, expected interface{}) bool {
	switch candidate := expected.(type) {
	case string:
		return actual == candidate
	case []string:
		for _, s := range candidate {
			if actual == s {
				return true
			}
		}
		return false
	}
	return true
}
