package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/advice/model"
	"github.com/viant/advice/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv := New()
	code := 3
	require.NoError(t, srv.Save(ctx, &model.Record{ID: "1", State: "concluded", Attachments: map[string]string{"a": "/tmp/a"}}))
	require.NoError(t, srv.Save(ctx, &model.Record{ID: "2", State: "failed", ExitCode: &code}))

	loaded, err := srv.Load(ctx, "1")
	require.NoError(t, err)
	loaded.Attachments["a"] = "changed"
	again, _ := srv.Load(ctx, "1")
	assert.Equal(t, "/tmp/a", again.Attachments["a"])

	failed, err := srv.List(ctx, dao.NewParameter(dao.ParameterState, "failed"))
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, *failed[0].ExitCode)

	_, err = srv.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
