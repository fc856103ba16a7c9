package tuning

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts go-openai's file and fine-tuning surface to ProviderClient.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) CreateFile(ctx context.Context, path string) (string, string, error) {
	f, err := c.client.CreateFile(ctx, openai.FileRequest{
		FileName: path,
		FilePath: path,
		Purpose:  "fine-tune",
	})
	if err != nil {
		return "", "", err
	}
	return f.ID, f.Status, nil
}

func (c *OpenAIClient) GetFileStatus(ctx context.Context, fileID string) (string, error) {
	f, err := c.client.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	return f.Status, nil
}

func (c *OpenAIClient) CreateFineTuningJob(ctx context.Context, fileID, baseModel string) (string, error) {
	job, err := c.client.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile: fileID,
		Model:        baseModel,
	})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

func (c *OpenAIClient) RetrieveFineTuningJob(ctx context.Context, jobID string) (string, string, error) {
	job, err := c.client.RetrieveFineTuningJob(ctx, jobID)
	if err != nil {
		return "", "", err
	}
	return job.Status, job.FineTunedModel, nil
}
