package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/useradmin/internal/audit"
	"github.com/odyssey-erp/useradmin/internal/observability"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeStore struct {
	entries   []audit.Entry
	retention time.Duration
	err       error
}

func (f *fakeStore) Record(_ context.Context, e audit.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) Prune(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 4, f.err
}

func TestClientRecordEnqueuesEntry(t *testing.T) {
	q := &fakeEnqueuer{}
	client := &Client{client: q}
	entry := audit.NewEntry(3, audit.ActionUsersDeleted, audit.EntityUser, "4", nil)

	require.NoError(t, client.Record(context.Background(), entry))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskAuditRecord, q.tasks[0].Type())

	var decoded audit.Entry
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, entry.Action, decoded.Action)
}

func TestClientRecordIgnoresDuplicates(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, client.Record(context.Background(), audit.NewEntry(1, audit.ActionUserLogin, audit.EntityUser, "1", nil)))

	cause := errors.New("redis unreachable")
	client = &Client{client: &fakeEnqueuer{err: cause}}
	assert.ErrorIs(t, client.Record(context.Background(), audit.NewEntry(1, audit.ActionUserLogin, audit.EntityUser, "1", nil)), cause)
}

func TestClientRecordWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	entry := audit.NewEntry(2, audit.ActionUserRegistered, audit.EntityUser, "2", nil)
	require.NoError(t, client.Record(context.Background(), entry))
	require.NoError(t, client.Record(context.Background(), entry))

	assert.True(t, mr.Exists("asynq:{default}:t:"+entry.ID.String()))
}

func TestHandleRecordPersistsEntry(t *testing.T) {
	store := &fakeStore{}
	job := NewAuditJob(store, nil, observability.NewMetrics(), time.Hour)
	entry := audit.NewEntry(5, audit.ActionStatusUpdated, audit.EntityUser, "6,7", map[string]any{"status": "blocked"})
	task, err := NewAuditRecordTask(entry)
	require.NoError(t, err)

	require.NoError(t, job.HandleRecord(context.Background(), task))
	require.Len(t, store.entries, 1)
	assert.Equal(t, entry.ID, store.entries[0].ID)
	assert.Equal(t, "blocked", store.entries[0].Meta["status"])
}

func TestHandleRecordSkipsRetryOnBadPayload(t *testing.T) {
	job := NewAuditJob(&fakeStore{}, nil, nil, time.Hour)

	err := job.HandleRecord(context.Background(), asynq.NewTask(TaskAuditRecord, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandleRecord(context.Background(), asynq.NewTask(TaskAuditRecord, []byte(`{"action":"user.login"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleRecordRetriesStoreFailure(t *testing.T) {
	cause := errors.New("db down")
	job := NewAuditJob(&fakeStore{err: cause}, nil, nil, time.Hour)
	task, err := NewAuditRecordTask(audit.NewEntry(1, audit.ActionUserLogin, audit.EntityUser, "1", nil))
	require.NoError(t, err)

	err = job.HandleRecord(context.Background(), task)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePruneUsesPayloadOrDefault(t *testing.T) {
	store := &fakeStore{}
	job := NewAuditJob(store, nil, nil, 72*time.Hour)

	task, err := NewAuditPruneTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.HandlePrune(context.Background(), task))
	assert.Equal(t, 24*time.Hour, store.retention)

	require.NoError(t, job.HandlePrune(context.Background(), asynq.NewTask(TaskAuditPrune, nil)))
	assert.Equal(t, 72*time.Hour, store.retention)
}

func TestNewWorkerRegistersCron(t *testing.T) {
	mr := miniredis.RunT(t)
	job := NewAuditJob(&fakeStore{}, nil, nil, time.Hour)
	prune, err := NewAuditPruneTask(time.Hour)
	require.NoError(t, err)

	worker, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: mr.Addr()},
		Handlers:  job.Handlers(),
		Cron:      []CronRegistration{{Spec: AuditPruneSchedule, Task: prune}},
	})
	require.NoError(t, err)
	assert.NotNil(t, worker.scheduler)

	_, err = NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: mr.Addr()}})
	assert.Error(t, err)
}
