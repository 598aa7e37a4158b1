package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier answers with fn and records every request.
type fakeClassifier struct {
	mu    sync.Mutex
	calls []ClassificationRequest
	fn    func(call int, req ClassificationRequest) (ClassificationResult, error)
}

func (f *fakeClassifier) Classify(_ context.Context, req ClassificationRequest) (ClassificationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	call := len(f.calls)
	f.mu.Unlock()

	if f.fn == nil {
		return nil, nil
	}
	return f.fn(call, req)
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func selectPNG(t *testing.T, o *Orchestrator, name string) {
	t.Helper()
	require.NoError(t, o.SelectFile(&RawFile{Name: name, MIMEType: "image/png", Data: pngHeader}))
}

func TestOrchestrator_SubmitWithoutFile(t *testing.T) {
	classifier := &fakeClassifier{}
	o := NewOrchestrator(classifier, newCountingStore())

	out := o.Submit(context.Background())

	assert.Equal(t, FailureOutcome("Please select an image first"), out)
	assert.Equal(t, out, o.Outcome())
	assert.Equal(t, 0, classifier.callCount())
	assert.Equal(t, SectionError, o.Snapshot().Section())
}

func TestOrchestrator_SubmitSuccessPreservesOrder(t *testing.T) {
	result := ClassificationResult{
		{DiseaseName: "A", Confidence: 85},
		{DiseaseName: "B", Confidence: 55},
		{DiseaseName: "C", Confidence: 20},
	}
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		return result, nil
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "scan.png")

	out := o.Submit(context.Background())

	require.True(t, out.IsSuccess())
	assert.Equal(t, result, out.Result)
	assert.False(t, o.Outcome().IsLoading())
	require.Equal(t, 1, classifier.callCount())
	assert.Equal(t, "scan.png", classifier.calls[0].FileName())
	assert.Equal(t, "image/png", classifier.calls[0].MIMEType())
	assert.Equal(t, pngHeader, classifier.calls[0].Data())

	snap := o.Snapshot()
	assert.Equal(t, SectionResults, snap.Section())
	require.Len(t, snap.Cards, 3)
	assert.Equal(t, "A", snap.Cards[0].Record.DiseaseName)
	assert.Equal(t, SeverityHigh, snap.Cards[0].Severity())
	assert.Equal(t, SeverityMedium, snap.Cards[1].Severity())
	assert.Equal(t, SeverityLow, snap.Cards[2].Severity())
	assert.True(t, snap.Cards[0].Expanded)
	assert.False(t, snap.Cards[1].Expanded)
	require.NotNil(t, snap.File)
	assert.Equal(t, "scan.png", snap.File.Name)
}

func TestOrchestrator_ServiceErrorShownVerbatim(t *testing.T) {
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		return nil, &ServiceError{Status: 500, Message: "file too large"}
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "big.png")

	out := o.Submit(context.Background())

	assert.Equal(t, FailureOutcome("file too large"), out)
	assert.False(t, o.Outcome().IsLoading())
	assert.Empty(t, o.Snapshot().Cards)
}

func TestOrchestrator_TransportErrorGeneric(t *testing.T) {
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		return nil, &TransportError{Op: "post", Err: errors.New("connection refused")}
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "scan.png")

	out := o.Submit(context.Background())

	assert.Equal(t, FailureOutcome(GenericFailureMessage), out)
}

func TestOrchestrator_LoadingDuringCall(t *testing.T) {
	var o *Orchestrator
	var sawLoading bool
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		sawLoading = o.Outcome().IsLoading()
		return ClassificationResult{{DiseaseName: "A", Confidence: 90}}, nil
	}}
	o = NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "scan.png")

	o.Submit(context.Background())

	assert.True(t, sawLoading)
	assert.True(t, o.Outcome().IsSuccess())
}

func TestOrchestrator_SelectionResetsOutcome(t *testing.T) {
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		return nil, &ServiceError{Status: 400, Message: "unsupported image"}
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "a.png")
	require.True(t, o.Submit(context.Background()).IsFailure())

	selectPNG(t, o, "b.png")

	assert.Equal(t, IdleOutcome(), o.Outcome())
	assert.Equal(t, SectionNone, o.Snapshot().Section())
}

func TestOrchestrator_StaleResponseAfterNewSelection(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		close(started)
		<-unblock
		return ClassificationResult{{DiseaseName: "Old", Confidence: 99}}, nil
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "first.png")

	done := make(chan Outcome, 1)
	go func() { done <- o.Submit(context.Background()) }()

	<-started
	selectPNG(t, o, "second.png")
	close(unblock)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit did not return")
	}

	assert.Equal(t, IdleOutcome(), o.Outcome())
	assert.Empty(t, o.Snapshot().Cards)
}

func TestOrchestrator_StaleResponseAfterNewSubmit(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	classifier := &fakeClassifier{fn: func(call int, _ ClassificationRequest) (ClassificationResult, error) {
		if call == 1 {
			close(started)
			<-unblock
			return ClassificationResult{{DiseaseName: "Old", Confidence: 99}}, nil
		}
		return ClassificationResult{{DiseaseName: "New", Confidence: 50}}, nil
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "scan.png")

	done := make(chan Outcome, 1)
	go func() { done <- o.Submit(context.Background()) }()
	<-started

	second := o.Submit(context.Background())
	require.True(t, second.IsSuccess())

	close(unblock)
	<-done

	out := o.Outcome()
	require.True(t, out.IsSuccess())
	assert.Equal(t, "New", out.Result[0].DiseaseName)
}

func TestOrchestrator_PanickingClassifierLeavesLoading(t *testing.T) {
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		panic("classifier exploded")
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "scan.png")

	assert.Panics(t, func() { o.Submit(context.Background()) })

	assert.Equal(t, FailureOutcome(GenericFailureMessage), o.Outcome())
}

func TestOrchestrator_ToggleCard(t *testing.T) {
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		return sampleResult(), nil
	}}
	o := NewOrchestrator(classifier, newCountingStore())

	assert.ErrorIs(t, o.ToggleCard(0), ErrUnknownCard)

	selectPNG(t, o, "scan.png")
	o.Submit(context.Background())

	require.NoError(t, o.ToggleCard(2))
	cards := o.Snapshot().Cards
	assert.True(t, cards[0].Expanded)
	assert.False(t, cards[1].Expanded)
	assert.True(t, cards[2].Expanded)

	assert.ErrorIs(t, o.ToggleCard(3), ErrUnknownCard)
}

func TestOrchestrator_CloseReleasesAndDiscards(t *testing.T) {
	store := newCountingStore()
	started := make(chan struct{})
	unblock := make(chan struct{})
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		close(started)
		<-unblock
		return sampleResult(), nil
	}}
	o := NewOrchestrator(classifier, store)
	selectPNG(t, o, "scan.png")

	done := make(chan Outcome, 1)
	go func() { done <- o.Submit(context.Background()) }()
	<-started

	o.Close()
	assert.Equal(t, 1, store.releases("preview-1"))

	close(unblock)
	<-done

	assert.Equal(t, IdleOutcome(), o.Outcome())
	assert.Empty(t, o.Snapshot().Cards)
	assert.ErrorIs(t, o.SelectFile(&RawFile{Name: "x.png", Data: pngHeader}), ErrControllerClosed)
	assert.True(t, o.Submit(context.Background()).IsFailure())
}

func TestOrchestrator_TryGuardsRefuseWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	classifier := &fakeClassifier{fn: func(call int, _ ClassificationRequest) (ClassificationResult, error) {
		if call == 1 {
			close(started)
			<-unblock
		}
		return sampleResult(), nil
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "first.png")

	done := make(chan error, 1)
	go func() {
		_, err := o.TrySubmit(context.Background())
		done <- err
	}()
	<-started
	require.True(t, o.InFlight())

	err := o.TrySelectFile(&RawFile{Name: "second.png", MIMEType: "image/png", Data: pngHeader})
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	out, err := o.TrySubmit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	assert.True(t, out.IsLoading())
	assert.Equal(t, 1, classifier.callCount())

	file, ok := o.SelectedFile()
	require.True(t, ok)
	assert.Equal(t, "first.png", file.Name)

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, o.InFlight())
	assert.True(t, o.Outcome().IsSuccess())

	require.NoError(t, o.TrySelectFile(&RawFile{Name: "second.png", MIMEType: "image/png", Data: pngHeader}))
	assert.Equal(t, IdleOutcome(), o.Outcome())
}

func TestOrchestrator_ConcurrentTrySubmitMakesOneCall(t *testing.T) {
	unblock := make(chan struct{})
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		<-unblock
		return sampleResult(), nil
	}}
	o := NewOrchestrator(classifier, newCountingStore())
	selectPNG(t, o, "scan.png")

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	refused := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.TrySubmit(context.Background()); errors.Is(err, ErrSubmissionInProgress) {
				mu.Lock()
				refused++
				mu.Unlock()
			}
		}()
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return refused == n-1
	}, time.Second, 5*time.Millisecond)
	close(unblock)
	wg.Wait()

	assert.Equal(t, 1, classifier.callCount())
	assert.True(t, o.Outcome().IsSuccess())
}

// gatedStore blocks Acquire until gate is closed.
type gatedStore struct {
	*countingStore
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (s *gatedStore) Acquire(data []byte, mimeType string) (*Preview, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return s.countingStore.Acquire(data, mimeType)
}

func TestOrchestrator_SubmitDuringSelectionUsesNewFile(t *testing.T) {
	store := &gatedStore{countingStore: newCountingStore(), entered: make(chan struct{}), gate: make(chan struct{})}
	classifier := &fakeClassifier{fn: func(int, ClassificationRequest) (ClassificationResult, error) {
		return sampleResult(), nil
	}}
	o := NewOrchestrator(classifier, store)

	selected := make(chan error, 1)
	go func() {
		selected <- o.SelectFile(&RawFile{Name: "scan.png", MIMEType: "image/png", Data: pngHeader})
	}()
	<-store.entered

	submitted := make(chan Outcome, 1)
	go func() { submitted <- o.Submit(context.Background()) }()

	// Submit waits for the selection to finish publishing.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, classifier.callCount())

	close(store.gate)
	require.NoError(t, <-selected)
	out := <-submitted

	require.True(t, out.IsSuccess())
	assert.True(t, o.Outcome().IsSuccess())
	require.Equal(t, 1, classifier.callCount())
	assert.Equal(t, "scan.png", classifier.calls[0].FileName())
}
