package execution

// Advice is a cross-cutting interceptor wrapping task execution.
//
// Before must call exactly one of Session.Proceed or Session.Conclude. After is
// called in reverse order for every advice whose Before was entered, on both
// success and failure; it must not call Proceed or Conclude.
type Advice interface {
	Name() string
	Before(session *Session) error
	After(session *Session) error
}
