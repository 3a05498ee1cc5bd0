package livebooks

import "errors"

var (
	ErrNotFound = errors.New("livebook not found")
	// ErrConflict indicates a compare-and-set transition lost the race.
	ErrConflict = errors.New("status transition conflict")
)

const (
	ErrorCodeDispatch             = "DISPATCH_ERROR"
	ErrorCodeTranscriptionFailed  = "TRANSCRIPTION_FAILED"
	ErrorCodeTranscriptionTimeout = "TRANSCRIPTION_TIMEOUT"
	ErrorCodeGeneration           = "GENERATION_ERROR"
	ErrorCodeRender               = "RENDER_ERROR"
	ErrorCodeUpload               = "UPLOAD_ERROR"
	ErrorCodeStorage              = "STORAGE_ERROR"
	ErrorCodeInternal             = "INTERNAL_ERROR"
)
