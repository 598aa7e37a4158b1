// Package core provides the submission lifecycle for rare-disease image
// classification.
//
// The package holds all domain logic independent of any surface. The web
// server, the CLI and the terminal UI drive the same types.
//
// # Architecture
//
//   - [UploadController] owns the selected image and its [Preview]. A new
//     selection releases the previous preview before acquiring the next.
//   - [Orchestrator] owns the [Outcome] state machine and is the only writer
//     of it. It builds a [ClassificationRequest], calls the [Classifier] and
//     maps every answer to Success or Failure.
//   - [ResultsView] renders a successful result as ordered cards. Only the
//     first card starts expanded and toggles are independent.
//   - [SeverityFor] bands a confidence score for display. It never filters
//     or reorders records.
//
// # Usage
//
//	orch := core.NewOrchestrator(client, core.NewMemoryPreviewStore())
//	defer orch.Close()
//
//	if err := orch.SelectFile(&core.RawFile{Name: "scan.png", Data: data}); err != nil {
//	    return err
//	}
//	out := orch.Submit(ctx)
//	if out.IsFailure() {
//	    fmt.Println(out.Message)
//	}
//
// # Errors
//
// A submit without a file fails locally with [NoFileMessage]. Service
// rejections ([ServiceError]) surface their own text; every other failure
// ([TransportError]) shows [GenericFailureMessage]. [MapError] adds a
// support code for logs and alerts.
package core
