package memory

import (
	"github.com/viant/advice/model"
	"github.com/viant/advice/service/dao"
	"github.com/viant/advice/service/dao/criteria"
	"github.com/viant/advice/service/dao/store"
)

// Service implements an in-memory session record storage. All operations are
// thread-safe and return copies of the stored records.
type Service struct {
	*store.MemoryStore[string, model.Record]
}

// Compile-time check that Service implements the generic DAO interface.
var _ dao.Service[string, model.Record] = (*Service)(nil)

// New constructor.
func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, model.Record](
			func(r *model.Record) string { return r.ID },
			store.WithClone[string, model.Record]((*model.Record).Clone),
			store.WithMatcher[string, model.Record](criteria.Match),
		),
	}
}
