package destination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// apiError mimics a storage SDK error carrying an HTTP status.
type apiError struct{ status int }

func (e *apiError) Error() string       { return "api error" }
func (e *apiError) HTTPStatusCode() int { return e.status }

func TestStartFileLoad_Completes(t *testing.T) {
	driver := newCountingDriver()
	client := newTestClient(t, driver, nil)
	local := stageFile(t, "orders.f1.0.jsonl", `{"id":1}`)

	job, err := client.StartFileLoad(context.Background(), local, "L1")
	require.NoError(t, err)

	assert.Equal(t, fsload.JobCompleted, job.State())
	assert.NoError(t, job.Err())
	assert.Equal(t, "orders.f1.0.jsonl", job.FileName())
	assert.Equal(t, "memory://lake/ds/orders/L1.f1.jsonl", job.RemotePath())

	content, err := driver.ReadFile("lake/ds/orders/L1.f1.jsonl")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(content))
}

func TestStartFileLoad_SchemaLayout(t *testing.T) {
	driver := newCountingDriver()
	client := newTestClient(t, driver, func(c *ClientConfig) {
		c.Layout = "{schema_name}/{table_name}/{load_id}.{file_id}.{ext}"
	})
	local := stageFile(t, "orders.f1.0.jsonl", "x")

	job, err := client.StartFileLoad(context.Background(), local, "L1")
	require.NoError(t, err)
	assert.Equal(t, "memory://lake/ds/sales/orders/L1.f1.jsonl", job.RemotePath())
}

func TestNewFileLoad_RunningUntilRun(t *testing.T) {
	driver := newCountingDriver()
	client := newTestClient(t, driver, nil)

	job, err := client.NewFileLoad(stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
	require.NoError(t, err)
	assert.Equal(t, fsload.JobRunning, job.State())
	assert.Empty(t, job.Followups())
	assert.Equal(t, 0, driver.puts)
}

func TestJob_RunTransfersOnce(t *testing.T) {
	driver := newCountingDriver()
	client := newTestClient(t, driver, nil)

	job, err := client.NewFileLoad(stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, driver.puts)
}

func TestStartFileLoad_TransientFailureRetries(t *testing.T) {
	driver := newCountingDriver()
	driver.putErr = &apiError{status: 503}
	client := newTestClient(t, driver, nil)

	job, err := client.StartFileLoad(context.Background(), stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
	require.NoError(t, err)

	assert.Equal(t, fsload.JobRetry, job.State())
	assert.ErrorIs(t, job.Err(), fsload.ErrTransfer)

	var transferErr *fsload.TransferError
	require.True(t, errors.As(job.Err(), &transferErr))
	assert.Equal(t, "put", transferErr.Op)
	assert.Equal(t, job.RemotePath(), transferErr.Path)
	assert.Equal(t, 1, driver.puts, "a job never retries by itself")
}

func TestStartFileLoad_FatalFailure(t *testing.T) {
	driver := newCountingDriver()
	driver.putErr = &apiError{status: 403}
	client := newTestClient(t, driver, nil)

	job, err := client.StartFileLoad(context.Background(), stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
	require.NoError(t, err)
	assert.Equal(t, fsload.JobFailed, job.State())
	assert.ErrorIs(t, job.Err(), fsload.ErrTransfer)
}

func TestStartFileLoad_CancelledIsFailed(t *testing.T) {
	client := newTestClient(t, newCountingDriver(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := client.StartFileLoad(ctx, stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
	require.NoError(t, err)
	assert.Equal(t, fsload.JobFailed, job.State())
	assert.ErrorIs(t, job.Err(), context.Canceled)
}

func TestStartFileLoad_MissingLocalFileFails(t *testing.T) {
	client := newTestClient(t, newCountingDriver(), nil)

	job, err := client.StartFileLoad(context.Background(), "/nonexistent/orders.f1.0.jsonl", "L1")
	require.NoError(t, err)
	assert.Equal(t, fsload.JobFailed, job.State())
}

func TestNewFileLoad_InvalidFileName(t *testing.T) {
	client := newTestClient(t, newCountingDriver(), nil)

	_, err := client.NewFileLoad("/tmp/orders.jsonl", "L1")
	assert.ErrorIs(t, err, fsload.ErrInvalidJobFileName)

	_, err = client.NewFileLoad("/tmp/orders.f1.0.jsonl", "")
	assert.ErrorIs(t, err, fsload.ErrInvalidConfig)
}

func TestNewFileLoad_PathEscapingDataset(t *testing.T) {
	client := newTestClient(t, newCountingDriver(), func(c *ClientConfig) {
		c.Layout = "../../{table_name}/{file_id}.{ext}"
	})

	_, err := client.NewFileLoad("/tmp/orders.f1.0.jsonl", "L1")
	assert.ErrorIs(t, err, fsload.ErrInvalidLayout)
}

func TestFollowups(t *testing.T) {
	t.Run("staging job emits exactly one reference job", func(t *testing.T) {
		client := newTestClient(t, newCountingDriver(), func(c *ClientConfig) { c.AsStaging = true })

		job, err := client.StartFileLoad(context.Background(), stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
		require.NoError(t, err)

		assert.Equal(t, []fsload.FollowupJob{{
			FileName:   "orders.f1.0.jsonl",
			Status:     fsload.JobRunning,
			RemotePath: "memory://lake/ds/orders/L1.f1.jsonl",
		}}, job.Followups())
	})

	t.Run("failed staging job emits nothing", func(t *testing.T) {
		driver := newCountingDriver()
		driver.putErr = errors.New("denied")
		client := newTestClient(t, driver, func(c *ClientConfig) { c.AsStaging = true })

		job, err := client.StartFileLoad(context.Background(), stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
		require.NoError(t, err)
		assert.Equal(t, fsload.JobFailed, job.State())
		assert.Empty(t, job.Followups())
	})

	t.Run("plain job emits nothing", func(t *testing.T) {
		client := newTestClient(t, newCountingDriver(), nil)

		job, err := client.StartFileLoad(context.Background(), stageFile(t, "orders.f1.0.jsonl", "x"), "L1")
		require.NoError(t, err)
		assert.Equal(t, fsload.JobCompleted, job.State())
		assert.Empty(t, job.Followups())
	})
}

func TestRestoreFileLoad(t *testing.T) {
	t.Run("completed without transfer", func(t *testing.T) {
		driver := newCountingDriver()
		client := newTestClient(t, driver, nil)

		job, err := client.RestoreFileLoad(context.Background(), "/gone/orders.f1.0.jsonl", "L1")
		require.NoError(t, err)
		assert.Equal(t, fsload.JobCompleted, job.State())
		assert.Equal(t, "memory://lake/ds/orders/L1.f1.jsonl", job.RemotePath())

		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, 0, driver.puts)
	})

	t.Run("staging restore emits reference job", func(t *testing.T) {
		client := newTestClient(t, newCountingDriver(), func(c *ClientConfig) { c.AsStaging = true })

		job, err := client.RestoreFileLoad(context.Background(), "/gone/orders.f1.0.jsonl", "L1")
		require.NoError(t, err)
		assert.Len(t, job.Followups(), 1)
	})

	t.Run("verified restore of missing file retries", func(t *testing.T) {
		client := newTestClient(t, newCountingDriver(), func(c *ClientConfig) { c.VerifyRestore = true })

		job, err := client.RestoreFileLoad(context.Background(), "/gone/orders.f1.0.jsonl", "L1")
		require.NoError(t, err)
		assert.Equal(t, fsload.JobRetry, job.State())
		assert.ErrorIs(t, job.Err(), fsload.ErrTransfer)
	})

	t.Run("verified restore of present file completes", func(t *testing.T) {
		driver := newCountingDriver()
		driver.AddFile("lake/ds/orders/L1.f1.jsonl", "x")
		client := newTestClient(t, driver, func(c *ClientConfig) { c.VerifyRestore = true })

		job, err := client.RestoreFileLoad(context.Background(), "/gone/orders.f1.0.jsonl", "L1")
		require.NoError(t, err)
		assert.Equal(t, fsload.JobCompleted, job.State())
	})

	t.Run("invalid name", func(t *testing.T) {
		client := newTestClient(t, newCountingDriver(), nil)
		_, err := client.RestoreFileLoad(context.Background(), "/gone/orders", "L1")
		assert.ErrorIs(t, err, fsload.ErrInvalidJobFileName)
	})
}
