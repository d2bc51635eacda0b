package tab

import "github.com/quocvuong92/kshell/internal/logging"

// CaptureJob attaches job to a free slot. When every slot is taken the
// oldest job, by insertion age, is aborted and its slot reused. Ties in age
// go to the lowest slot index.
func (t *Tab) CaptureJob(job Job) {
	t.mu.Lock()
	slot := t.freeSlot()
	var evicted Job
	if slot < 0 {
		slot = t.oldestSlot()
		evicted = t.jobs[slot]
	}
	t.jobs[slot] = job
	t.age[slot] = t.ageCounter
	t.ageCounter++
	t.mu.Unlock()

	if evicted != nil {
		t.log.Debug("evicting oldest job", logging.Fields{"job": evicted.ID(), "slot": slot})
		evicted.Abort()
	}
}

func (t *Tab) freeSlot() int {
	for i, j := range t.jobs {
		if j == nil {
			return i
		}
	}
	return -1
}

func (t *Tab) oldestSlot() int {
	oldest := -1
	for i, j := range t.jobs {
		if j == nil {
			continue
		}
		if oldest < 0 || t.age[i] < t.age[oldest] {
			oldest = i
		}
	}
	return oldest
}

// RemoveJob clears the slot holding a job with job's ID. The job is not
// aborted.
func (t *Tab) RemoveJob(job Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, j := range t.jobs {
		if j != nil && j.ID() == job.ID() {
			t.jobs[i] = nil
			t.age[i] = 0
			return
		}
	}
}

// AbortAllJobs aborts and clears every occupied slot.
func (t *Tab) AbortAllJobs() {
	t.mu.Lock()
	jobs := make([]Job, 0, len(t.jobs))
	for i, j := range t.jobs {
		if j != nil {
			jobs = append(jobs, j)
		}
		t.jobs[i] = nil
		t.age[i] = 0
	}
	t.mu.Unlock()

	for _, j := range jobs {
		j.Abort()
	}
}

// Jobs returns the attached jobs in slot order.
func (t *Tab) Jobs() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Job
	for _, j := range t.jobs {
		if j != nil {
			out = append(out, j)
		}
	}
	return out
}

// JobCount returns the number of attached jobs.
func (t *Tab) JobCount() int {
	return len(t.Jobs())
}

// MaxJobs returns the number of job slots.
func (t *Tab) MaxJobs() int {
	return len(t.jobs)
}
