package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/repository"
	"github.com/ismaelcompsci/postall/internal/service"
)

type TokenRefreshJob struct {
	sc repository.SocialConnectionRepository
	ts service.TokenService
}

func NewTokenRefreshJob(sc repository.SocialConnectionRepository, ts service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sc: sc,
		ts: ts,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	until := time.Now().Add(24 * time.Hour)

	connections, err := j.sc.ListExpiring(ctx, until)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, conn := range connections {
		// YouTube sessions are re-established via the OAuth library at use
		// time, not by this job.
		if conn.Platform == models.PlatformYoutube {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(conn *models.SocialConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			// Loading the credentials refreshes them when expiry falls inside
			// the lookahead window, which is true for every row listed here.
			if _, err := j.ts.GetAccountCredentials(ctx, conn.ID, conn.UserID, conn.Platform); err != nil {
				slog.Info("Unable to refresh tokens", "platform", conn.Platform, "connection_id", conn.ID)
			}
		}(conn)
	}

	wg.Wait()
}
