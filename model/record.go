package model

import "time"

// Record is the persisted summary of a finished session.
type Record struct {
	ID          string            `json:"id" yaml:"id"`
	RunID       string            `json:"runId" yaml:"runId"`
	TaskID      string            `json:"taskId" yaml:"taskId"`
	ExecutionID string            `json:"executionId" yaml:"executionId"`
	Function    string            `json:"function" yaml:"function"`
	State       string            `json:"state" yaml:"state"`
	Value       interface{}       `json:"value,omitempty" yaml:"value,omitempty"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	ExitCode    *int              `json:"exitCode,omitempty" yaml:"exitCode,omitempty"`
	Attachments map[string]string `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	StartedAt   time.Time         `json:"startedAt" yaml:"startedAt"`
	EndedAt     time.Time         `json:"endedAt" yaml:"endedAt"`
}

// Clone returns a copy safe to hand out from a store.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Attachments != nil {
		clone.Attachments = make(map[string]string, len(r.Attachments))
		for k, v := range r.Attachments {
			clone.Attachments[k] = v
		}
	}
	if r.ExitCode != nil {
		code := *r.ExitCode
		clone.ExitCode = &code
	}
	return &clone
}
