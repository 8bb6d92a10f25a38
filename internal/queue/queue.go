package queue

import (
	"github.com/ismaelcompsci/postall/internal/service"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

type Queue struct {
	ps service.PublishService
}

func NewQueue(ps service.PublishService) *Queue {
	return &Queue{
		ps: ps,
	}
}

const TaskTypePublishPost = "publish:post"

// PublishTaskPayload carries the full, already-validated publish request so the
// worker can replay it without touching the database first.
type PublishTaskPayload struct {
	UserID   int64                    `json:"user_id"`
	FileKey  string                   `json:"file_key"`
	CoverKey string                   `json:"cover_key,omitempty"`
	Targets  []transfer.PublishTarget `json:"targets"`
	Captions map[string]string        `json:"captions"`
}
