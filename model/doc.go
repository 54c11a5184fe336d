// Package model contains the data exchanged by the advice engine: the Task
// describing what to run, the Execution identifying one attempt, the Result
// of that attempt and the Record persisted once a session has finished.
package model
