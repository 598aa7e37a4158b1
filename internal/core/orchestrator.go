package core

// orchestrator.go drives the submission state machine:
//
//	Idle -> Loading -> {Success, Failure}
//
// A new selection returns the cycle to Idle; a new Submit re-enters Loading.
// The orchestrator is the only writer of the outcome.
//
// Every Submit and every selection advances a sequence number. A classifier
// answer is applied only if its sequence is still the latest, so a slow
// response can never overwrite the outcome of a newer file or submission.
// Submit and SelectFile neither queue nor cancel an in-flight call. Surfaces
// that allow one request at a time use TrySubmit and TrySelectFile, which
// refuse with ErrSubmissionInProgress while a classifier call is running.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var errClassifierAborted = errors.New("classification aborted")

// Snapshot is a consistent read of the orchestrator for rendering.
type Snapshot struct {
	Outcome Outcome      `json:"outcome"`
	File    *FileInfo    `json:"file,omitempty"`
	Cards   []ResultItem `json:"cards,omitempty"`
}

// Section returns what the results area should render.
func (s Snapshot) Section() Section { return SectionFor(s.Outcome) }

// Orchestrator owns the request outcome and composes the upload controller
// and the results view.
type Orchestrator struct {
	classifier Classifier
	uploads    *UploadController
	logger     *slog.Logger

	mu      sync.Mutex
	outcome Outcome
	results *ResultsView
	seq      uint64
	inFlight int
	closed   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for submission events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator in the Idle state.
func NewOrchestrator(classifier Classifier, previews PreviewStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		logger:     slog.Default(),
		outcome:    IdleOutcome(),
	}
	o.uploads = NewUploadController(previews, o.resetCycle)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SelectFile forwards to the upload controller. A successful selection
// discards any displayed result or error and invalidates in-flight requests.
// The new file and the new sequence become visible together.
func (o *Orchestrator) SelectFile(raw *RawFile) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.uploads.SelectFile(raw)
}

// TrySelectFile is SelectFile that refuses with ErrSubmissionInProgress while
// a classifier call is in flight.
func (o *Orchestrator) TrySelectFile(raw *RawFile) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inFlight > 0 {
		return ErrSubmissionInProgress
	}
	return o.uploads.SelectFile(raw)
}

// resetCycle is the upload controller's selection listener. It runs inside
// SelectFile with o.mu held.
func (o *Orchestrator) resetCycle() {
	o.seq++
	o.outcome = IdleOutcome()
	o.results = nil
}

// SelectedFile returns the current selection.
func (o *Orchestrator) SelectedFile() (*SelectedFile, bool) {
	return o.uploads.SelectedFile()
}

// Submit runs one submission cycle and returns the outcome it produced.
//
// Without a selected file it fails immediately with NoFileMessage and makes
// no call. Otherwise it enters Loading, issues exactly one classifier call
// and leaves Loading on every path, including a panicking classifier.
func (o *Orchestrator) Submit(ctx context.Context) Outcome {
	out, _ := o.submit(ctx, false)
	return out
}

// TrySubmit is Submit for surfaces that allow one request at a time. While a
// classifier call is in flight it makes no call and returns the current
// outcome with ErrSubmissionInProgress.
func (o *Orchestrator) TrySubmit(ctx context.Context) (Outcome, error) {
	return o.submit(ctx, true)
}

// InFlight reports whether a classifier call is running.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight > 0
}

func (o *Orchestrator) submit(ctx context.Context, exclusive bool) (out Outcome, refused error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return FailureOutcome(GenericFailureMessage), nil
	}
	if exclusive && o.inFlight > 0 {
		out = o.outcome
		o.mu.Unlock()
		return out, ErrSubmissionInProgress
	}

	file, ok := o.uploads.SelectedFile()
	req, err := NewClassificationRequest(file)
	if !ok || err != nil {
		o.outcome = FailureOutcome(FailureMessage(ErrNoFileSelected))
		o.results = nil
		out = o.outcome
		o.mu.Unlock()
		o.logger.Info("submission rejected", "reason", "no file selected")
		return out, nil
	}

	o.seq++
	seq := o.seq
	o.inFlight++
	o.outcome = LoadingOutcome()
	o.results = nil
	o.mu.Unlock()

	log := o.logger.With("seq", seq, "file", req.FileName(), "size", len(req.Data()))
	log.Info("submission started")
	start := time.Now()

	result, callErr := ClassificationResult(nil), errClassifierAborted
	defer func() {
		out = o.finish(seq, result, callErr, log, time.Since(start))
	}()

	result, callErr = o.classifier.Classify(ctx, req)
	return out, nil
}

// finish applies a classifier answer if it is still current.
func (o *Orchestrator) finish(seq uint64, result ClassificationResult, err error, log *slog.Logger, took time.Duration) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inFlight--
	if seq != o.seq || o.closed {
		log.Warn("discarding stale classification response",
			"current_seq", o.seq,
			"duration_ms", took.Milliseconds(),
		)
		return o.outcome
	}

	if err != nil {
		o.outcome = FailureOutcome(FailureMessage(err))
		o.results = nil
		log.Warn("submission failed",
			"error", err,
			"code", MapError(err).Code,
			"duration_ms", took.Milliseconds(),
		)
		return o.outcome
	}

	o.outcome = SuccessOutcome(result)
	o.results = NewResultsView(result)
	log.Info("submission succeeded",
		"predictions", len(result),
		"duration_ms", took.Milliseconds(),
	)
	return o.outcome
}

// Outcome returns the current outcome.
func (o *Orchestrator) Outcome() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// Results returns a copy of the current cards. It is nil unless the outcome
// is Success.
func (o *Orchestrator) Results() *ResultsView {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.results == nil {
		return nil
	}
	return &ResultsView{items: o.results.Items()}
}

// ToggleCard flips the expansion of the card at index.
func (o *Orchestrator) ToggleCard(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results.Toggle(index)
}

// Snapshot returns the outcome, file metadata and cards in one read.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Outcome: o.outcome,
		Cards:   o.results.Items(),
	}
	if file, ok := o.uploads.SelectedFile(); ok {
		info := file.Info()
		snap.File = &info
	}
	return snap
}

// Close tears the orchestrator down and releases the preview. A response
// arriving afterwards is discarded.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.seq++
	o.outcome = IdleOutcome()
	o.results = nil
	o.mu.Unlock()

	o.uploads.Close()
}
