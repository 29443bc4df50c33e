package models

import "time"

// SessionStatus is the state-machine position of a session.
type SessionStatus string

const (
	StatusPrepared         SessionStatus = "prepared"
	StatusGenerating       SessionStatus = "generating"
	StatusSegmentsComplete SessionStatus = "segments_complete"
	StatusFinalized        SessionStatus = "finalized"
	StatusFailed           SessionStatus = "failed"
)

// Phase names an externally callable unit of work.
type Phase string

const (
	PhasePrepare  Phase = "prepare"
	PhaseGenerate Phase = "generate"
	PhaseFinalize Phase = "finalize"
	// PhaseEnhance never fails a session; it only labels events and metrics.
	PhaseEnhance Phase = "enhance"
)

// Failure is the structured reason stored on a failed session.
type Failure struct {
	Phase        Phase     `json:"phase"`
	Kind         ErrorKind `json:"kind"`
	Message      string    `json:"message"`
	SegmentIndex *int      `json:"segment_index,omitempty"`
	Retryable    bool      `json:"retryable"`
	At           time.Time `json:"at"`
}

// ReferenceRecord tracks one presenter reference frame of a session.
type ReferenceRecord struct {
	Index       int        `json:"index"`
	Framing     string     `json:"framing"`
	TaskID      string     `json:"task_id,omitempty"`
	URL         string     `json:"url,omitempty"`
	Seed        int64      `json:"seed"`
	LastError   string     `json:"last_error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ready reports whether the reference image exists in object storage.
func (r ReferenceRecord) Ready() bool {
	return r.URL != ""
}

// SegmentRecord tracks one generated clip.
type SegmentRecord struct {
	Index             int         `json:"index"`
	Role              SegmentRole `json:"role"`
	ReferenceImageURL string      `json:"reference_image_url"`
	TaskID            string      `json:"task_id,omitempty"`
	RemoteURL         string      `json:"remote_url,omitempty"`
	LocalFilePath     string      `json:"local_file_path,omitempty"`
	SubmittedAt       *time.Time  `json:"submitted_at,omitempty"`
	DownloadedAt      *time.Time  `json:"downloaded_at,omitempty"`
	Attempts          int         `json:"attempts"`
	LastError         string      `json:"last_error,omitempty"`
	LastErrorKind     ErrorKind   `json:"last_error_kind,omitempty"`
}

// Done reports whether the clip is on local disk.
func (s SegmentRecord) Done() bool {
	return s.LocalFilePath != ""
}

// AssemblyRecord keeps the timing facts of the assembled base video so that
// later enhancement passes can place overlays without re-probing every clip.
type AssemblyRecord struct {
	SegmentDurations []float64 `json:"segment_durations"`
	OutroDuration    float64   `json:"outro_duration"`
	Boundaries       []float64 `json:"boundaries"`
	Duration         float64   `json:"duration"`
	FlashesApplied   bool      `json:"flashes_applied"`
}

// EnhancementRecord is one derived output of a finalized session.
type EnhancementRecord struct {
	Path      string            `json:"path,omitempty"`
	Report    EnhancementReport `json:"report"`
	CreatedAt time.Time         `json:"created_at"`
}

// Session is the unit of work: one script rendered by one presenter.
type Session struct {
	ID                     string              `json:"id"`
	Presenter              PresenterProfile    `json:"presenter"`
	CatalogueVersion       string              `json:"catalogue_version"`
	Preset                 DurationPreset      `json:"preset"`
	Script                 Script              `json:"script"`
	ProgressionStyle       string              `json:"progression_style"`
	Status                 SessionStatus       `json:"status"`
	References             []ReferenceRecord   `json:"references"`
	Segments               []SegmentRecord     `json:"segments"`
	Failure                *Failure            `json:"failure,omitempty"`
	Assembly               *AssemblyRecord     `json:"assembly,omitempty"`
	FinalVideoPath         string              `json:"final_video_path,omitempty"`
	Enhancements           []EnhancementRecord `json:"enhancements,omitempty"`
	LastProviderActivityAt *time.Time          `json:"last_provider_activity_at,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// AllSegmentsDownloaded reports whether every segment has a local clip.
func (s *Session) AllSegmentsDownloaded() bool {
	if len(s.Segments) == 0 {
		return false
	}
	for _, seg := range s.Segments {
		if !seg.Done() {
			return false
		}
	}
	return true
}

// AllReferencesReady reports whether every reference frame has been stored.
func (s *Session) AllReferencesReady() bool {
	if len(s.References) == 0 {
		return false
	}
	for _, ref := range s.References {
		if !ref.Ready() {
			return false
		}
	}
	return true
}

// SegmentPaths returns local clip paths in segment order.
func (s *Session) SegmentPaths() []string {
	paths := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		paths = append(paths, seg.LocalFilePath)
	}
	return paths
}
