package tuning

import (
	"context"
	"log"
)

// Report is one row of the /training response table.
type Report struct {
	HTTPStatus int
	Success    bool
	Content    string // data.content, empty on error rows
	Done       bool   // data.status
	ErrMessage string
}

// Enqueuer submits the background fine-tuning task; the caller returns
// immediately with an in-progress report.
type Enqueuer interface {
	EnqueueTraining(ctx context.Context) error
}

// Progress inspects persisted job state, kicks off or retries the background
// task when needed, and for a completed provider job persists the fine-tuned
// model id as the active model.
type Progress struct {
	state        StateStore
	client       ProviderClient
	enqueuer     Enqueuer
	apiKey       string
	activeModel  string
	trainingFile string
	baseModel    string
}

func NewProgress(state StateStore, client ProviderClient, enqueuer Enqueuer, apiKey, activeModel, trainingFile, baseModel string) *Progress {
	return &Progress{
		state:        state,
		client:       client,
		enqueuer:     enqueuer,
		apiKey:       apiKey,
		activeModel:  activeModel,
		trainingFile: trainingFile,
		baseModel:    baseModel,
	}
}

func errorReport(msg string) Report {
	return Report{HTTPStatus: 500, Success: false, ErrMessage: msg}
}

func progressReport(content string, done bool) Report {
	return Report{HTTPStatus: 200, Success: true, Content: content, Done: done}
}

func (p *Progress) Check(ctx context.Context) Report {
	if p.apiKey == "" {
		return errorReport("Open API key missing")
	}

	model, err := p.state.GetModelID(ctx)
	if err != nil {
		return errorReport(err.Error())
	}
	if model == "" {
		model = p.activeModel
	}
	if model != "" {
		return progressReport("Fine-tuning operation completed. Please refresh the page.", true)
	}

	status, err := p.state.GetJobStatus(ctx)
	if err != nil {
		return errorReport(err.Error())
	}

	switch status {
	case StatusUnset:
		if p.trainingFile == "" || p.baseModel == "" {
			return progressReport("TRAINING_FILE or BASE_MODEL environment variable is empty or not set.", false)
		}
		if err := p.enqueuer.EnqueueTraining(ctx); err != nil {
			log.Printf("[Training] enqueue failed: %v", err)
			return errorReport(err.Error())
		}
		return progressReport("Fine-tuning operation is currently in progress", false)

	case StatusFailed:
		if err := p.enqueuer.EnqueueTraining(ctx); err != nil {
			log.Printf("[Training] enqueue failed: %v", err)
			return errorReport(err.Error())
		}
		return progressReport("Fine-tuning operation had failed and retrying", false)

	case StatusPending:
		return progressReport("Fine-tuning operation is currently in progress", false)

	default: // StatusSuccess: the provider job exists, look it up
		jobID, err := p.state.GetJobID(ctx)
		if err != nil {
			return errorReport(err.Error())
		}
		jobStatus, fineTunedModel, err := p.client.RetrieveFineTuningJob(ctx, jobID)
		if err != nil {
			return errorReport(err.Error())
		}
		switch jobStatus {
		case "succeeded":
			if err := p.state.SetModelID(ctx, fineTunedModel); err != nil {
				return errorReport(err.Error())
			}
			return progressReport("Fine-tuning operation completed. Please refresh the page.", true)
		case "failed", "cancelled":
			return errorReport("An error occurred in while fine-tuning model")
		default:
			return progressReport("Fine-tuning operation is still currently in progress", false)
		}
	}
}
