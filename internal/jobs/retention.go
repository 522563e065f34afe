package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// AudioPurger deletes stored recordings last modified before cutoff.
type AudioPurger interface {
	PurgeOlderThan(cutoff time.Time) (int, error)
}

// RetentionJob purges recordings older than the retention period on a cron
// schedule.
type RetentionJob struct {
	audio     AudioPurger
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

func NewRetentionJob(audio AudioPurger, retention time.Duration, schedule string) (*RetentionJob, error) {
	j := &RetentionJob{
		audio:     audio,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, j.purge); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *RetentionJob) Start() {
	j.cron.Start()
	log.Info().Dur("retention", j.retention).Msg("audio retention job started")
}

// Stop waits for a purge already in progress.
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("audio retention job stopped")
}

func (j *RetentionJob) purge() {
	cutoff := j.now().Add(-j.retention)

	n, err := j.audio.PurgeOlderThan(cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("audio retention purge failed")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Time("cutoff", cutoff).Msg("purged expired audio recordings")
	}
}
