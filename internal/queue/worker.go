package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

func (j *Queue) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	results := j.ps.Publish(ctx, payload.UserID, &transfer.MediaReference{
		FileKey:  payload.FileKey,
		CoverKey: payload.CoverKey,
	}, payload.Targets, payload.Captions)

	for platform, result := range results {
		if !result.Success {
			log.Printf("Scheduled publish to %s failed for user %d: %s", platform, payload.UserID, result.Error)
		}
	}

	return nil
}
