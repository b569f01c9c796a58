package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/domain"
)

type recordingEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.task = task
	r.opts = opts
	if r.err != nil {
		return nil, r.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: "exports", Type: task.Type()}, nil
}

func TestEnqueueWindowExport(t *testing.T) {
	t.Run("enqueues on the given queue", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		payload := &WindowExportPayload{JobID: uuid.New(), Range: domain.ResolvedRange{From: 1, To: 2}}

		info, err := EnqueueWindowExport(context.Background(), enq, payload, "exports")

		require.NoError(t, err)
		assert.Equal(t, "exports", info.Queue)
		require.NotNil(t, enq.task)
		assert.Equal(t, TypeWindowExport, enq.task.Type())
		require.Len(t, enq.opts, 1)
		assert.Equal(t, asynq.QueueOpt, enq.opts[0].Type())
		assert.Equal(t, "exports", enq.opts[0].Value())
	})

	t.Run("propagates enqueue errors", func(t *testing.T) {
		enq := &recordingEnqueuer{err: errors.New("redis: connection refused")}

		_, err := EnqueueWindowExport(context.Background(), enq, &WindowExportPayload{JobID: uuid.New()}, "default")

		require.Error(t, err)
	})
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(zap.NewNop(), config.RedisConfig{}, config.WorkerConfig{}, &WorkerDependencies{})
	require.Error(t, err)

	_, err = NewServer(zap.NewNop(), config.RedisConfig{}, config.WorkerConfig{}, nil)
	require.Error(t, err)
}

func TestTaskLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	boom := errors.New("boom")

	h := taskLogging(zap.New(core))(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		return boom
	}))

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeWindowExport, nil))

	assert.ErrorIs(t, err, boom)
	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "task started", entries[0].Message)
	assert.Equal(t, "task finished", entries[1].Message)
	assert.Equal(t, false, entries[1].ContextMap()["ok"])
	assert.Equal(t, TypeWindowExport, entries[1].ContextMap()["type"])
}

func TestRedisOpt(t *testing.T) {
	opt := RedisOpt(config.RedisConfig{Host: "redis", Port: 6380, Password: "secret", DB: 2})

	assert.Equal(t, "redis:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
}

func TestAsynqLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &asynqLogger{logger: zap.New(core)}

	l.Debug("scheduler", " ", "tick")
	l.Info("started")
	l.Warn("slow")
	l.Error("failed ", 3)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "scheduler tick", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "failed 3", entries[3].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}
