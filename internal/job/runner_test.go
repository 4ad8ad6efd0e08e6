package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/veogen/internal/generator"
	"github.com/maauso/veogen/internal/storage"
)

// opaqueVideo is not sniffable, so storage saves it as video/mp4.
var opaqueVideo = []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff, 0x00, 0x10}

// script describes how the fake backend treats one submitted variation.
type script struct {
	submitErr error
	// doneAfter is the poll on which the job finishes. 0 finishes on
	// submit; a negative value never finishes.
	doneAfter int
	pollErr   error
	jobErr    string
	videos    []generator.Video
}

// fakeBackend plays scripts in submission order; the last script repeats.
type fakeBackend struct {
	mu           sync.Mutex
	scripts      []script
	submitted    int
	byJob        map[string]script
	polls        map[string]int
	downloadErrs map[string]error
	onPoll       func(jobID string, n int)
}

func newFakeBackend(scripts ...script) *fakeBackend {
	return &fakeBackend{
		scripts:      scripts,
		byJob:        make(map[string]script),
		polls:        make(map[string]int),
		downloadErrs: make(map[string]error),
	}
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-model-1" }

func (f *fakeBackend) Submit(_ context.Context, opts generator.SubmitOptions) (generator.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.scripts[min(f.submitted, len(f.scripts)-1)]
	f.submitted++
	if s.submitErr != nil {
		return generator.PollResult{}, s.submitErr
	}

	jobID := fmt.Sprintf("op-%d", f.submitted)
	f.byJob[jobID] = s
	if s.doneAfter == 0 {
		return f.finished(jobID, s), nil
	}
	return generator.PollResult{JobID: jobID, Status: generator.StatusRunning}, nil
}

func (f *fakeBackend) Poll(_ context.Context, jobID string) (generator.PollResult, error) {
	f.mu.Lock()
	f.polls[jobID]++
	n := f.polls[jobID]
	s := f.byJob[jobID]
	hook := f.onPoll
	f.mu.Unlock()

	if hook != nil {
		hook(jobID, n)
	}
	if s.pollErr != nil {
		return generator.PollResult{}, s.pollErr
	}
	if s.doneAfter > 0 && n >= s.doneAfter {
		return f.finished(jobID, s), nil
	}
	return generator.PollResult{JobID: jobID, Status: generator.StatusRunning}, nil
}

func (f *fakeBackend) finished(jobID string, s script) generator.PollResult {
	if s.jobErr != "" {
		return generator.PollResult{JobID: jobID, Status: generator.StatusFailed, Error: s.jobErr}
	}
	return generator.PollResult{JobID: jobID, Status: generator.StatusCompleted, Videos: s.videos}
}

func (f *fakeBackend) DownloadOutput(_ context.Context, v generator.Video) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.downloadErrs[v.URI]; ok {
		return nil, err
	}
	return v.Data, nil
}

func (f *fakeBackend) pollCount(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[jobID]
}

func (f *fakeBackend) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

func video(uri string) generator.Video {
	return generator.Video{URI: uri, Data: opaqueVideo}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, backend generator.Generator, opts ...RunnerOption) (*Runner, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	opts = append([]RunnerOption{WithPollInterval(time.Millisecond), WithMaxPolls(3), WithExtendedMaxPolls(6)}, opts...)
	return NewRunner(backend, store, discardLogger(), opts...), store
}

func TestRunner_PartialSuccess(t *testing.T) {
	backend := newFakeBackend(
		script{doneAfter: 2, videos: []generator.Video{video("v1")}},
		script{submitErr: errors.New("quota exceeded")},
	)
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 2})

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalVideos)
	assert.Equal(t, 2, res.VariationsRequested)
	require.Len(t, res.Videos, 1)
	assert.Equal(t, 1, res.Videos[0].Variation)
	assert.Equal(t, 1, res.Videos[0].Index)
	assert.Equal(t, 2, backend.pollCount("op-1"))

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Variation)
	assert.Equal(t, ErrorKindSubmission, res.Failures[0].ErrorKind)
	assert.Equal(t, "quota exceeded", res.Failures[0].Error)

	assert.Empty(t, res.Error)
	assert.Empty(t, res.ErrorKind)
	assert.NotEmpty(t, res.Timestamp)
	assert.Equal(t, "a cat", res.Prompt)
	assert.Equal(t, "16:9", res.AspectRatio)
	assert.Equal(t, "dont_allow", res.PersonGeneration)
	assert.Equal(t, "fake", res.Backend)
	assert.Equal(t, "fake-model-1", res.Model)
}

func TestRunner_ArtifactPersisted(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 1, videos: []generator.Video{video("v1")}})
	runner, store := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 1})
	require.True(t, res.Success)
	require.Len(t, res.Videos, 1)

	a := res.Videos[0]
	assert.True(t, strings.HasPrefix(a.Filename, "fake_1_1_"), a.Filename)
	assert.True(t, strings.HasSuffix(a.Filename, ".mp4"), a.Filename)
	assert.Equal(t, "video/mp4", a.MIMEType)
	assert.Equal(t, int64(len(opaqueVideo)), a.SizeBytes)
	assert.Equal(t, "http://localhost:8000/videos/"+a.Filename, a.URL)

	data, err := os.ReadFile(a.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, opaqueVideo, data)

	st, err := store.Stat(context.Background(), a.URL)
	require.NoError(t, err)
	assert.True(t, st.Exists)
}

func TestRunner_TimeoutAfterExactlyMaxPolls(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: -1})
	runner, store := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 2})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindAggregateFailure, res.ErrorKind)
	assert.Equal(t, "Failed to generate any video variations", res.Error)
	assert.Empty(t, res.Videos)
	assert.NotNil(t, res.Videos)

	// The batch continues past the first timeout.
	assert.Equal(t, 2, backend.submissions())
	assert.Equal(t, 3, backend.pollCount("op-1"))
	assert.Equal(t, 3, backend.pollCount("op-2"))

	require.Len(t, res.Failures, 2)
	for i, f := range res.Failures {
		assert.Equal(t, i+1, f.Variation)
		assert.Equal(t, ErrorKindPollTimeout, f.ErrorKind)
		assert.Equal(t, 3, f.Polls)
	}

	listing, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, listing.Total)
}

func TestRunner_ExtendedBudget(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: -1})
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 1, Budget: BudgetExtended})

	assert.False(t, res.Success)
	assert.Equal(t, 6, backend.pollCount("op-1"))
}

func TestRunner_CompletesOnLastAllowedPoll(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 3, videos: []generator.Video{video("v1")}})
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 1})

	assert.True(t, res.Success)
	assert.Equal(t, 3, backend.pollCount("op-1"))
}

func TestRunner_DoneOnSubmitSkipsPolling(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 0, videos: []generator.Video{video("v1")}})
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 1})

	assert.True(t, res.Success)
	assert.Zero(t, backend.pollCount("op-1"))
}

func TestRunner_FailureIsolation(t *testing.T) {
	backend := newFakeBackend(
		script{submitErr: errors.New("unauthenticated")},
		script{doneAfter: 1, jobErr: "prompt blocked by safety filters"},
		script{doneAfter: 1},
		script{doneAfter: 1, pollErr: errors.New("connection reset")},
		script{doneAfter: 1, videos: []generator.Video{video("v5")}},
	)
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 5})

	assert.True(t, res.Success)
	require.Len(t, res.Videos, 1)
	assert.Equal(t, 5, res.Videos[0].Variation)

	require.Len(t, res.Failures, 4)
	assert.Equal(t, ErrorKindSubmission, res.Failures[0].ErrorKind)
	assert.Equal(t, ErrorKindBackendJob, res.Failures[1].ErrorKind)
	assert.Equal(t, "prompt blocked by safety filters", res.Failures[1].Error)
	assert.Equal(t, ErrorKindBackendJob, res.Failures[2].ErrorKind)
	assert.Equal(t, "no videos generated", res.Failures[2].Error)
	assert.Equal(t, ErrorKindBackendJob, res.Failures[3].ErrorKind)
	assert.Equal(t, "connection reset", res.Failures[3].Error)
}

func TestRunner_DownloadErrorDoesNotAbortOtherVideos(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 1, videos: []generator.Video{video("v1"), video("v2"), video("v3")}})
	backend.downloadErrs["v2"] = errors.New("403 forbidden")
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 1})

	assert.True(t, res.Success)
	require.Len(t, res.Videos, 2)
	assert.Equal(t, 1, res.Videos[0].Index)
	assert.Equal(t, 3, res.Videos[1].Index)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, ErrorKindDownload, res.Failures[0].ErrorKind)
	assert.Equal(t, 2, res.Failures[0].Index)
}

func TestRunner_AllDownloadsFail(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 1, videos: []generator.Video{video("v1")}})
	backend.downloadErrs["v1"] = errors.New("403 forbidden")
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 1})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindAggregateFailure, res.ErrorKind)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, ErrorKindDownload, res.Failures[0].ErrorKind)
}

func TestRunner_UniqueFilenames(t *testing.T) {
	videos := []generator.Video{video("a"), video("b"), video("c")}
	backend := newFakeBackend(script{doneAfter: 0, videos: videos})
	runner, store := newTestRunner(t, backend, WithConcurrency(5))

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 5})
	require.True(t, res.Success)
	require.Len(t, res.Videos, 15)

	seen := make(map[string]bool)
	for _, a := range res.Videos {
		assert.False(t, seen[a.Filename], "duplicate filename %s", a.Filename)
		seen[a.Filename] = true
	}

	listing, err := store.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 15, listing.Total)

	// A second run in the same second must not overwrite the first.
	res2 := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 5})
	require.Len(t, res2.Videos, 15)
	listing, err = store.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 30, listing.Total)
}

func TestRunner_ConcurrentResultsOrderedByVariation(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 2, videos: []generator.Video{video("v")}})
	runner, _ := newTestRunner(t, backend, WithConcurrency(3))

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: 3})

	require.Len(t, res.Videos, 3)
	for i, a := range res.Videos {
		assert.Equal(t, i+1, a.Variation)
	}
}

func TestRunner_EmptyPrompt(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 0})
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "   ", VariationCount: 2})

	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindSubmission, res.ErrorKind)
	assert.Equal(t, ErrPromptRequired.Error(), res.Error)
	assert.NotEmpty(t, res.Timestamp)
	assert.Zero(t, backend.submissions())
}

func TestRunner_VariationClamp(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"above max", 9, 5},
		{"zero", 0, 1},
		{"negative", -3, 1},
		{"in range", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(script{doneAfter: 0, videos: []generator.Video{video("v")}})
			runner, _ := newTestRunner(t, backend)

			res := runner.SubmitAndAwait(context.Background(), Request{Prompt: "a cat", VariationCount: tt.requested})

			assert.Equal(t, tt.want, res.VariationsRequested)
			assert.Equal(t, tt.want, backend.submissions())
			assert.LessOrEqual(t, res.TotalVideos, tt.want)
		})
	}
}

func TestRunner_Cancellation(t *testing.T) {
	backend := newFakeBackend(
		script{doneAfter: 0, videos: []generator.Video{video("v1")}},
		script{doneAfter: -1},
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend.onPoll = func(jobID string, n int) {
		if jobID == "op-2" && n == 2 {
			cancel()
		}
	}
	runner, _ := newTestRunner(t, backend, WithMaxPolls(1000))

	res := runner.SubmitAndAwait(ctx, Request{Prompt: "a cat", VariationCount: 3})

	// The artifact saved before cancellation is still reported.
	assert.True(t, res.Success)
	require.Len(t, res.Videos, 1)
	assert.Equal(t, 1, res.Videos[0].Variation)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, 2, res.Failures[0].Variation)
	assert.Equal(t, ErrorKindCancelled, res.Failures[0].ErrorKind)
	assert.Equal(t, 3, res.Failures[1].Variation)
	assert.Equal(t, ErrorKindCancelled, res.Failures[1].ErrorKind)

	// Variation 3 is never submitted and polling stops for variation 2.
	assert.Equal(t, 2, backend.submissions())
	assert.LessOrEqual(t, backend.pollCount("op-2"), 3)
}

func TestRunner_NormalizesEnums(t *testing.T) {
	backend := newFakeBackend(script{doneAfter: 0, videos: []generator.Video{video("v")}})
	runner, _ := newTestRunner(t, backend)

	res := runner.SubmitAndAwait(context.Background(), Request{
		Prompt:         "a cat",
		AspectRatio:    "4:3",
		PersonPolicy:   "everyone",
		VariationCount: 1,
	})

	assert.Equal(t, "16:9", res.AspectRatio)
	assert.Equal(t, "dont_allow", res.PersonGeneration)
}

func TestJob_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"PENDING to POLLING", StatusPending, StatusPolling, false},
		{"PENDING to FAILED", StatusPending, StatusFailed, false},
		{"PENDING to SUCCEEDED", StatusPending, StatusSucceeded, false},
		{"POLLING to TIMED_OUT", StatusPolling, StatusTimedOut, false},
		{"POLLING to SUCCEEDED", StatusPolling, StatusSucceeded, false},
		{"POLLING to PENDING", StatusPolling, StatusPending, true},
		{"SUCCEEDED to FAILED", StatusSucceeded, StatusFailed, true},
		{"FAILED to SUCCEEDED", StatusFailed, StatusSucceeded, true},
		{"TIMED_OUT to POLLING", StatusTimedOut, StatusPolling, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJob(1, Request{Prompt: "p"})
			j.Status = tt.from
			err := j.TransitionTo(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, j.Status)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, j.Status)
			}
		})
	}
}

func TestJob_RecordPoll(t *testing.T) {
	j := NewJob(1, Request{Prompt: "p"})
	assert.Equal(t, StatusPending, j.Status)

	j.RecordPoll()
	assert.Equal(t, StatusPolling, j.Status)
	assert.Equal(t, 1, j.PollCount)

	j.RecordPoll()
	assert.Equal(t, 2, j.PollCount)

	require.NoError(t, j.Timeout())
	assert.Equal(t, ErrorKindPollTimeout, j.ErrorKind)
	assert.False(t, j.CompletedAt.IsZero())

	// Terminal status is set once.
	j.RecordPoll()
	assert.Equal(t, 2, j.PollCount)
	assert.ErrorIs(t, j.Fail(ErrorKindBackendJob, "late"), ErrInvalidTransition)
	assert.Equal(t, StatusTimedOut, j.Status)
	assert.Equal(t, ErrorKindPollTimeout, j.ErrorKind)
}

func TestSizeMB(t *testing.T) {
	assert.Equal(t, 0.0, SizeMB(0))
	assert.Equal(t, 1.0, SizeMB(1024*1024))
	assert.Equal(t, 2.5, SizeMB(5*1024*1024/2))
}
