package model

import (
	"time"

	"github.com/viant/advice/internal/clock"
	"github.com/viant/advice/internal/idgen"
)

// Execution identifies one attempt to run a task.
type Execution struct {
	ID        string    `json:"id" yaml:"id"`
	TaskID    string    `json:"taskId" yaml:"taskId"`
	Attempt   int       `json:"attempt" yaml:"attempt"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// NewExecution creates the first attempt of the task.
func NewExecution(task *Task) *Execution {
	ret := &Execution{ID: idgen.New(), Attempt: 1, CreatedAt: clock.Now()}
	if task != nil {
		ret.TaskID = task.ID
	}
	return ret
}

// Next returns the following attempt of the same task.
func (e *Execution) Next() *Execution {
	return &Execution{
		ID:        idgen.New(),
		TaskID:    e.TaskID,
		Attempt:   e.Attempt + 1,
		CreatedAt: clock.Now(),
	}
}
