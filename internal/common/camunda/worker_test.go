package camunda

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient hands out nil commands; the test handlers never send them.
type stubClient struct{}

func (stubClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (stubClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (stubClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

type recordingObserver struct {
	mu        sync.Mutex
	processed []string
	durations []time.Duration
}

func (o *recordingObserver) RecordJobProcessed(_ context.Context, taskType, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.processed = append(o.processed, taskType+":"+status)
}

func (o *recordingObserver) RecordJobDuration(_ context.Context, _ string, d time.Duration, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.durations = append(o.durations, d)
}

type handlerFunc func(worker.JobClient, entities.Job)

func (f handlerFunc) Handle(client worker.JobClient, job entities.Job) { f(client, job) }

func TestObserve_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name   string
		handle handlerFunc
		status string
	}{
		{name: "complete", handle: func(c worker.JobClient, _ entities.Job) { c.NewCompleteJobCommand() }, status: StatusCompleted},
		{name: "fail", handle: func(c worker.JobClient, _ entities.Job) { c.NewFailJobCommand() }, status: StatusFailed},
		{name: "throw", handle: func(c worker.JobClient, _ entities.Job) { c.NewThrowErrorCommand() }, status: StatusThrown},
		{name: "nothing sent", handle: func(worker.JobClient, entities.Job) {}, status: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			h := Observe("refresh-qualification", tt.handle, obs)

			h(stubClient{}, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1}})

			require.Len(t, obs.processed, 1)
			assert.Equal(t, "refresh-qualification:"+tt.status, obs.processed[0])
			assert.Len(t, obs.durations, 1)
		})
	}
}

func TestObserve_NilObserverPassesClientThrough(t *testing.T) {
	var got worker.JobClient
	h := Observe("validate-qualification", handlerFunc(func(c worker.JobClient, _ entities.Job) { got = c }), nil)

	client := stubClient{}
	h(client, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1}})
	assert.Equal(t, client, got)
}
