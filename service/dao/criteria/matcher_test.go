package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/advice/model"
	"github.com/viant/advice/service/dao"
)

func TestMatch(t *testing.T) {
	record := &model.Record{ID: "1", RunID: "r1", State: "failed", Function: "f"}
	var testCases = []struct {
		description string
		parameters  []*dao.Parameter
		expect      bool
	}{
		{description: "no parameters", expect: true},
		{description: "state", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "failed")}, expect: true},
		{description: "state list", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "concluded", "failed")}, expect: true},
		{description: "state mismatch", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "concluded")}, expect: false},
		{description: "run and function", parameters: []*dao.Parameter{
			dao.NewParameter(dao.ParameterRunID, "r1"),
			dao.NewParameter(dao.ParameterFunction, "g"),
		}, expect: false},
		{description: "unknown ignored", parameters: []*dao.Parameter{dao.NewParameter("Other", "x")}, expect: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Match(record, testCase.parameters))
		})
	}
}
