package processing

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"server/faces"
	"server/models"
	"server/storage"

	"gorm.io/gorm"
)

const (
	jobDetect = 1
	jobThumb  = 2

	queueDepth   = 1024
	retryBackoff = 2 * time.Second
)

type job struct {
	kind    uint8
	mediaID uint64
}

// Queue is the bounded worker pool behind media commits. Work submitted here
// is fire-and-forget from the caller's perspective: the HTTP response has
// already been sent when a job runs, so failures end up in the log and the
// failure counter, never in a response body.
type Queue struct {
	db       *gorm.DB
	faces    faces.Client
	store    storage.API
	jobs     chan job
	workers  int
	retries  int
	wg       sync.WaitGroup
	failures atomic.Uint64
}

func NewQueue(db *gorm.DB, client faces.Client, store storage.API, workers, retries int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if retries < 1 {
		retries = 1
	}
	return &Queue{
		db:      db,
		faces:   client,
		store:   store,
		jobs:    make(chan job, queueDepth),
		workers: workers,
		retries: retries,
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Stop drains the queue and waits for in-flight jobs.
func (q *Queue) Stop() {
	close(q.jobs)
	q.wg.Wait()
}

// Failures is the number of jobs that exhausted their retries.
func (q *Queue) Failures() uint64 {
	return q.failures.Load()
}

// EnqueueDetect schedules face detection for a media row. Blocks only when
// the queue is saturated (backpressure on a very busy server).
func (q *Queue) EnqueueDetect(mediaID uint64) {
	q.jobs <- job{kind: jobDetect, mediaID: mediaID}
}

// EnqueueThumb schedules thumbnail generation for a media row.
func (q *Queue) EnqueueThumb(mediaID uint64) {
	q.jobs <- job{kind: jobThumb, mediaID: mediaID}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	var err error
	for attempt := 1; attempt <= q.retries; attempt++ {
		if err = q.runOnce(j); err == nil {
			return
		}
		if attempt < q.retries {
			time.Sleep(time.Duration(attempt) * retryBackoff)
		}
	}
	q.failures.Add(1)
	log.Printf("processing: job kind=%d media=%d failed after %d attempts: %v", j.kind, j.mediaID, q.retries, err)
}

func (q *Queue) runOnce(j job) error {
	media := models.EventMedia{}
	if err := q.db.First(&media, j.mediaID).Error; err != nil {
		return err
	}
	switch j.kind {
	case jobDetect:
		_, err := DetectMedia(context.Background(), q.db, q.faces, &media)
		return err
	case jobThumb:
		return CreateThumbFor(q.db, q.store, &media)
	}
	return nil
}
