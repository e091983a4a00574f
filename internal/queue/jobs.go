// Package queue defines the background task types shared by the API server,
// the maintenance CLI and the conversion worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// ConvertGalleryTask is scheduled for each unconverted HEIC catalog row.
const ConvertGalleryTask = "gallery:convert"

// ConvertPayload tells the worker which catalog row to convert.
type ConvertPayload struct {
	FileID       string `json:"file_id"`
	OriginalPath string `json:"original_path"`
}

// EnqueueConvert queues a HEIC conversion job.
func EnqueueConvert(ctx context.Context, client *asynq.Client, payload ConvertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ConvertGalleryTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue convert task: %w", err)
	}
	return nil
}
