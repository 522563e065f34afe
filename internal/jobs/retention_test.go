package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	cutoffs []time.Time
	err     error
}

func (p *recordingPurger) PurgeOlderThan(cutoff time.Time) (int, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 2, p.err
}

func TestRetentionJob(t *testing.T) {
	now := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

	t.Run("purges with cutoff of now minus retention", func(t *testing.T) {
		purger := &recordingPurger{}
		job, err := NewRetentionJob(purger, 60*24*time.Hour, "0 3 * * *")
		require.NoError(t, err)
		job.now = func() time.Time { return now }

		job.purge()

		require.Len(t, purger.cutoffs, 1)
		assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), purger.cutoffs[0])
	})

	t.Run("purge errors are logged", func(t *testing.T) {
		purger := &recordingPurger{err: errors.New("permission denied")}
		job, err := NewRetentionJob(purger, time.Hour, "@daily")
		require.NoError(t, err)

		assert.NotPanics(t, job.purge)
	})

	t.Run("rejects invalid schedules", func(t *testing.T) {
		_, err := NewRetentionJob(&recordingPurger{}, time.Hour, "every tuesday")
		assert.Error(t, err)
	})

	t.Run("start and stop", func(t *testing.T) {
		job, err := NewRetentionJob(&recordingPurger{}, time.Hour, "@hourly")
		require.NoError(t, err)

		job.Start()
		job.Stop()
	})
}
