// Package tuning drives provider-side fine-tuning: upload a training file,
// poll it to processed, launch a tuning job, and persist job state in the
// sidecar store so it survives restarts.
package tuning

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Job lifecycle statuses persisted in the sidecar store. An absent key reads
// back as StatusUnset.
const (
	StatusUnset   = ""
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

const retryLimit = 3

// StateStore is the narrow key-value contract for fine-tune job state.
type StateStore interface {
	GetJobStatus(ctx context.Context) (string, error)
	SetJobStatus(ctx context.Context, status string) error
	GetJobID(ctx context.Context) (string, error)
	SetJobID(ctx context.Context, jobID string) error
	GetModelID(ctx context.Context) (string, error)
	SetModelID(ctx context.Context, modelID string) error
}

// ProviderClient is the slice of the LLM provider's file and fine-tuning API
// the driver needs.
type ProviderClient interface {
	CreateFile(ctx context.Context, path string) (fileID, status string, err error)
	GetFileStatus(ctx context.Context, fileID string) (string, error)
	CreateFineTuningJob(ctx context.Context, fileID, baseModel string) (jobID string, err error)
	RetrieveFineTuningJob(ctx context.Context, jobID string) (status, fineTunedModel string, err error)
}

// Driver runs one fine-tuning task end to end. Idempotent per invocation:
// every run marks PENDING, does its work, and lands on SUCCESS or FAILED.
type Driver struct {
	client       ProviderClient
	state        StateStore
	trainingFile string
	baseModel    string
	pollInterval time.Duration
}

func NewDriver(client ProviderClient, state StateStore, trainingFile, baseModel string) *Driver {
	return &Driver{
		client:       client,
		state:        state,
		trainingFile: trainingFile,
		baseModel:    baseModel,
		pollInterval: 5 * time.Second,
	}
}

func (d *Driver) Run(ctx context.Context) error {
	if err := d.state.SetJobStatus(ctx, StatusPending); err != nil {
		return err
	}

	fileID, err := d.uploadProcessedFile(ctx)
	if err == nil {
		err = d.launchJob(ctx, fileID)
	}

	if err != nil {
		log.Printf("[Tuning] task failed: %v", err)
		if serr := d.state.SetJobStatus(ctx, StatusFailed); serr != nil {
			return serr
		}
		return err
	}
	return d.state.SetJobStatus(ctx, StatusSuccess)
}

// uploadProcessedFile uploads the training file and polls until the provider
// reports it processed. The whole step is retried up to retryLimit attempts.
func (d *Driver) uploadProcessedFile(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < retryLimit; attempt++ {
		fileID, status, err := d.client.CreateFile(ctx, d.trainingFile)
		if err != nil {
			lastErr = err
			continue
		}
		for status != "processed" {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(d.pollInterval):
			}
			status, err = d.client.GetFileStatus(ctx, fileID)
			if err != nil {
				break
			}
			if status == "failed" {
				err = errors.New("training file processing failed")
				break
			}
		}
		if err != nil {
			lastErr = err
			continue
		}
		return fileID, nil
	}
	return "", fmt.Errorf("upload training file: %w", lastErr)
}

// launchJob creates the fine-tuning job against the base model and persists
// the returned job id. Retried separately from the upload step.
func (d *Driver) launchJob(ctx context.Context, fileID string) error {
	var lastErr error
	for attempt := 0; attempt < retryLimit; attempt++ {
		jobID, err := d.client.CreateFineTuningJob(ctx, fileID, d.baseModel)
		if err != nil {
			lastErr = err
			continue
		}
		return d.state.SetJobID(ctx, jobID)
	}
	return fmt.Errorf("create fine-tuning job: %w", lastErr)
}
