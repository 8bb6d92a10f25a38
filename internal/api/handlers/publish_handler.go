package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/ismaelcompsci/postall/internal/queue"
	"github.com/ismaelcompsci/postall/internal/service"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

type PublishHandler struct {
	s           service.PublishService
	AsynqClient *asynq.Client
}

func NewPublishHandler(service service.PublishService, asynqClient *asynq.Client) *PublishHandler {
	return &PublishHandler{s: service, AsynqClient: asynqClient}
}

// publishRequest is the validated form of POST /api/publish.
type publishRequest struct {
	FileKey       string
	CoverKey      string
	MediaType     string
	Targets       []transfer.PublishTarget
	Captions      map[string]string
	ScheduledTime string
}

func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	userID := GetUserID(c)

	req, err := parsePublishRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	media := &transfer.MediaReference{
		FileKey:  req.FileKey,
		CoverKey: req.CoverKey,
	}

	if req.ScheduledTime != "" {
		scheduledTime, err := time.Parse("2006-01-02T15:04", req.ScheduledTime)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid scheduledTime format",
			})
		}

		delay := time.Until(scheduledTime)
		if delay < 0 {
			delay = 0
		}

		err = queue.EnqueuePublish(h.AsynqClient, queue.PublishTaskPayload{
			UserID:   userID,
			FileKey:  req.FileKey,
			CoverKey: req.CoverKey,
			Targets:  req.Targets,
			Captions: req.Captions,
		}, delay)
		if err != nil {
			slog.Error(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error scheduling post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"scheduled": true,
		})
	}

	results := h.s.Publish(c.Context(), userID, media, req.Targets, req.Captions)
	if results == nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "platform upload failed",
		})
	}

	// The per-platform result map is the response body. 200 means the request
	// was processed; callers inspect each entry's success flag.
	return c.Status(fiber.StatusOK).JSON(results)
}

func parsePublishRequest(c *fiber.Ctx) (*publishRequest, error) {
	fileKey := c.FormValue("fileKey")
	if fileKey == "" {
		return nil, fmt.Errorf("fileKey is required")
	}

	mediaType := c.FormValue("mediaType")
	if mediaType == "" {
		return nil, fmt.Errorf("mediaType is required")
	}
	if mediaType != "video" && mediaType != "image" {
		return nil, fmt.Errorf("mediaType must be video or image")
	}

	platformsStr := c.FormValue("platforms")
	if platformsStr == "" {
		return nil, fmt.Errorf("platforms is required")
	}

	var targets []transfer.PublishTarget
	if err := json.Unmarshal([]byte(platformsStr), &targets); err != nil {
		return nil, fmt.Errorf("platforms is not a valid JSON array")
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("platforms must not be empty")
	}

	captionsStr := c.FormValue("platformCaptions")
	if captionsStr == "" {
		return nil, fmt.Errorf("platformCaptions is required")
	}

	var captions map[string]string
	if err := json.Unmarshal([]byte(captionsStr), &captions); err != nil {
		return nil, fmt.Errorf("platformCaptions is not a valid JSON object")
	}

	return &publishRequest{
		FileKey:       fileKey,
		CoverKey:      c.FormValue("coverKey"),
		MediaType:     mediaType,
		Targets:       targets,
		Captions:      captions,
		ScheduledTime: c.FormValue("scheduledTime"),
	}, nil
}
