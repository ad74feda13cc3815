package daemon

import (
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/stage"
)

// jobView is the API representation of a queued job. Stage outputs stay in
// the report file; the view carries the decoded verdict once one exists.
type jobView struct {
	Token       string            `json:"token"`
	Source      string            `json:"source"`
	Title       string            `json:"title,omitempty"`
	Mode        string            `json:"mode"`
	Status      string            `json:"status"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Progress    jobProgress       `json:"progress"`
	Verdict     *classify.Verdict `json:"verdict,omitempty"`
	ReportPath  string            `json:"report_path,omitempty"`
	CancelAsked bool              `json:"cancel_requested,omitempty"`
}

// jobProgress marks which stage outputs have been persisted so far.
type jobProgress struct {
	Downloaded  bool `json:"downloaded"`
	Sampled     bool `json:"sampled"`
	Extracted   bool `json:"extracted"`
	Transcribed bool `json:"transcribed"`
	Classified  bool `json:"classified"`
}

func jobViewFrom(job *queue.Job) jobView {
	view := jobView{
		Token:       job.Token,
		Source:      job.Source,
		Title:       job.Title,
		Mode:        job.Mode,
		Status:      string(job.Status),
		Error:       job.ErrorMessage,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		ReportPath:  job.ReportPath,
		CancelAsked: job.CancelRequested,
		Progress: jobProgress{
			Downloaded:  job.LocalPath != "",
			Sampled:     job.FramesJSON != "",
			Extracted:   job.DetectionsJSON != "",
			Transcribed: job.TranscriptJSON != "",
			Classified:  job.VerdictJSON != "",
		},
	}
	if job.VerdictJSON != "" {
		if verdict, err := classify.DecodeVerdict(job.VerdictJSON); err == nil {
			view.Verdict = &verdict
		}
	}
	return view
}

type queueListResponse struct {
	Jobs []jobView `json:"jobs"`
}

type statusResponse struct {
	Running      bool        `json:"running"`
	Workers      int         `json:"workers"`
	QueueStats   queue.Stats `json:"queue_stats"`
	LastError    string      `json:"last_error,omitempty"`
	QueueDBPath  string      `json:"queue_db_path"`
	LockFilePath string      `json:"lock_file_path"`
	APIAddress   string      `json:"api_address,omitempty"`
}

type healthResponse struct {
	Ready  bool           `json:"ready"`
	Checks []stage.Health `json:"checks"`
}
