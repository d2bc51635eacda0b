package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/split"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/usage"
)

// WatchJob re-runs a command line on a tab at a fixed interval until it is
// aborted or has run its count.
type WatchJob struct {
	id       string
	line     string
	interval time.Duration
	count    int

	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	runs int
	last error
}

// ID implements tab.Job.
func (j *WatchJob) ID() string { return j.id }

// Abort implements tab.Job. It cancels the job without waiting for the
// current run to return; see Done.
func (j *WatchJob) Abort() { j.cancel() }

// Line returns the watched command line.
func (j *WatchJob) Line() string { return j.line }

// Runs returns how many times the command has run.
func (j *WatchJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

// LastErr returns the error of the most recent run, if it failed.
func (j *WatchJob) LastErr() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Done is closed when the job has stopped.
func (j *WatchJob) Done() <-chan struct{} { return j.done }

var _ tab.Job = (*WatchJob)(nil)

// runner executes one iteration of a watch job.
type runner func(ctx context.Context, line string) error

func (j *WatchJob) loop(ctx context.Context, run runner, onExit func()) {
	defer close(j.done)
	defer onExit()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		err := run(ctx, j.line)
		j.mu.Lock()
		j.runs++
		j.last = err
		runs := j.runs
		j.mu.Unlock()

		if j.count > 0 && runs >= j.count {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Plugin) registerJobs(r plugins.Registrar) error {
	if _, err := r.Listen("/watch", p.watch, &command.Options{
		Docs: "Re-run a command at an interval in the background",
		Usage: &usage.Model{
			Command:  "watch",
			Example:  "watch -n 5 kubectl get pods",
			Required: []usage.Row{{Name: "command", Docs: "the command to re-run"}},
			Optional: []usage.Row{
				{Name: "--interval", Alias: "-n", Docs: "seconds between runs", Example: "<seconds>"},
				{Name: "--count", Alias: "-c", Docs: "stop after this many runs", Example: "<n>"},
			},
		},
	}); err != nil {
		return err
	}

	if _, err := r.Listen("/jobs", p.jobs, &command.Options{
		Docs:  "List the background jobs of the current tab",
		Usage: &usage.Model{Command: "jobs", Strict: true},
	}); err != nil {
		return err
	}

	_, err := r.Listen("/jobs/kill", p.kill, &command.Options{
		Docs: "Stop background jobs",
		Usage: &usage.Model{
			Command: "jobs kill",
			Example: "jobs kill 3f2a",
			OneOf: []usage.Row{
				{Name: "id", Docs: "job id or unique prefix"},
				{Name: "--all", Alias: "-a", Boolean: true, Docs: "stop every job"},
			},
		},
	})
	return err
}

// watchArgs splits argv after the route into watch's own flags and the
// watched command, so flags of the watched command are passed through.
func watchArgs(argv []string) (interval time.Duration, count int, line string, err error) {
	interval = constants.DefaultWatchInterval
	i := 0
	for i < len(argv) {
		name, value, inline := strings.Cut(strings.TrimLeft(argv[i], "-"), "=")
		if !strings.HasPrefix(argv[i], "-") || (name != "n" && name != "interval" && name != "c" && name != "count") {
			break
		}
		if !inline {
			if i+1 >= len(argv) {
				return 0, 0, "", fmt.Errorf("flag %s needs a value", argv[i])
			}
			value = argv[i+1]
			i++
		}
		i++

		switch name {
		case "n", "interval":
			secs, perr := strconv.ParseFloat(value, 64)
			if perr != nil {
				return 0, 0, "", fmt.Errorf("invalid interval %q", value)
			}
			interval = time.Duration(secs * float64(time.Second))
		default:
			if count, err = strconv.Atoi(value); err != nil || count < 0 {
				return 0, 0, "", fmt.Errorf("invalid count %q", value)
			}
		}
	}
	if interval < constants.MinWatchInterval {
		interval = constants.MinWatchInterval
	}
	return interval, count, split.Join(argv[i:]), nil
}

func (p *Plugin) watch(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("watch requires a tab")
	}
	interval, count, line, err := watchArgs(args.Argv[args.Depth:])
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, fmt.Errorf("nothing to watch")
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &WatchJob{
		id:       uuid.NewString()[:8],
		line:     line,
		interval: interval,
		count:    count,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	t := args.Tab
	repl := args.REPL
	log := p.log.With(logging.Fields{"job": job.id, "line": line})
	run := func(ctx context.Context, line string) error {
		resp, err := repl.Qexec(ctx, line, &command.ExecOptions{Tab: t})
		if err != nil {
			log.Debug("watched command failed", logging.Fields{"error": err.Error()})
			return err
		}
		if out := args.CreateOutputStream; out != nil {
			return out()(resp)
		}
		return nil
	}

	t.CaptureJob(job)
	go job.loop(jobCtx, run, func() { t.RemoveJob(job) })
	log.Info("started watch job", logging.Fields{"interval": interval.String()})
	return fmt.Sprintf("Watching %q every %s (job %s)", line, interval, job.id), nil
}

func (p *Plugin) jobs(ctx context.Context, args *command.Arguments) (any, error) {
	t := &response.Table{Header: []string{"ID", "COMMAND", "INTERVAL", "RUNS", "STATUS"}}
	if args.Tab == nil {
		return t, nil
	}
	for _, j := range args.Tab.Jobs() {
		row := []string{j.ID(), "", "", "", ""}
		if w, ok := j.(*WatchJob); ok {
			status := "ok"
			if err := w.LastErr(); err != nil {
				status = err.Error()
			}
			row = []string{w.id, w.line, w.interval.String(), strconv.Itoa(w.Runs()), status}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (p *Plugin) kill(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("jobs kill requires a tab")
	}
	if args.Parsed.Bool("all") {
		n := args.Tab.JobCount()
		args.Tab.AbortAllJobs()
		return fmt.Sprintf("Stopped %d jobs", n), nil
	}

	prefix := args.Rest()[0]
	var match tab.Job
	for _, j := range args.Tab.Jobs() {
		if strings.HasPrefix(j.ID(), prefix) {
			if match != nil {
				return nil, fmt.Errorf("job id %q is ambiguous", prefix)
			}
			match = j
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no job %q", prefix)
	}
	match.Abort()
	args.Tab.RemoveJob(match)
	return fmt.Sprintf("Stopped job %s", match.ID()), nil
}
