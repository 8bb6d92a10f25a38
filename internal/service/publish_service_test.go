package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

type fakeTokenService struct {
	err   error
	calls int
}

func (s *fakeTokenService) GetAccountCredentials(ctx context.Context, connectionID, userID int64, platform string) (*transfer.Credentials, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &transfer.Credentials{
		ConnectionID:   connectionID,
		UserID:         userID,
		Platform:       platform,
		PlatformUserID: "ext-1",
		AccessToken:    "token",
	}, nil
}

type fakeMediaResolver struct {
	calls int
	err   error
}

func (r *fakeMediaResolver) ResolveMediaURLs(ctx context.Context, fileKey, coverKey string) (*transfer.MediaURLs, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &transfer.MediaURLs{FileURL: "https://signed.example/" + fileKey}, nil
}

func allPlatformTargets() []transfer.PublishTarget {
	return []transfer.PublishTarget{
		{Name: models.PlatformInstagram, AccountIDs: []int64{1}},
		{Name: models.PlatformTiktok, AccountIDs: []int64{2}},
		{Name: models.PlatformYoutube, AccountIDs: []int64{3}},
	}
}

func TestPublishFailureIsolation(t *testing.T) {
	instagram := &fakePlatformClient{platform: models.PlatformInstagram}
	tiktok := &fakePlatformClient{platform: models.PlatformTiktok, publishErr: &PublishError{Err: errors.New("rejected")}}
	youtube := &fakePlatformClient{platform: models.PlatformYoutube}

	s := NewPublishService(&fakeTokenService{}, &fakeMediaResolver{}, NewClientRegistry(instagram, tiktok, youtube))

	results := s.Publish(context.Background(), 42, &transfer.MediaReference{FileKey: "file-1"}, allPlatformTargets(), map[string]string{
		models.PlatformInstagram: "ig caption",
		models.PlatformTiktok:    "tt caption",
		models.PlatformYoutube:   "yt caption",
	})

	if len(results) != 3 {
		t.Fatalf("results=%d, want one per platform", len(results))
	}
	if !results[models.PlatformInstagram].Success {
		t.Fatalf("instagram result: %+v", results[models.PlatformInstagram])
	}
	if !results[models.PlatformYoutube].Success {
		t.Fatalf("youtube result: %+v", results[models.PlatformYoutube])
	}
	if results[models.PlatformTiktok].Success {
		t.Fatal("tiktok publish should have failed")
	}
	if results[models.PlatformTiktok].Error == "" {
		t.Fatal("tiktok failure should carry an error message")
	}
	if len(youtube.published) != 1 || youtube.published[0] != "yt caption" {
		t.Fatalf("youtube publish calls: %v", youtube.published)
	}
}

func TestPublishResolvesMediaOnce(t *testing.T) {
	resolver := &fakeMediaResolver{}
	s := NewPublishService(&fakeTokenService{}, resolver, NewClientRegistry(
		&fakePlatformClient{platform: models.PlatformInstagram},
		&fakePlatformClient{platform: models.PlatformTiktok},
		&fakePlatformClient{platform: models.PlatformYoutube},
	))

	s.Publish(context.Background(), 42, &transfer.MediaReference{FileKey: "file-1"}, allPlatformTargets(), map[string]string{})

	if resolver.calls != 1 {
		t.Fatalf("resolver calls=%d, want 1", resolver.calls)
	}
}

func TestPublishMediaResolutionFailure(t *testing.T) {
	resolver := &fakeMediaResolver{err: &MediaNotFoundError{Key: "file-1"}}
	s := NewPublishService(&fakeTokenService{}, resolver, NewClientRegistry(
		&fakePlatformClient{platform: models.PlatformInstagram},
		&fakePlatformClient{platform: models.PlatformTiktok},
	))

	results := s.Publish(context.Background(), 42, &transfer.MediaReference{FileKey: "file-1"}, []transfer.PublishTarget{
		{Name: models.PlatformInstagram, AccountIDs: []int64{1}},
		{Name: models.PlatformTiktok, AccountIDs: []int64{2}},
	}, map[string]string{})

	for platform, result := range results {
		if result.Success {
			t.Fatalf("%s should have failed without media", platform)
		}
		if result.Error == "" {
			t.Fatalf("%s failure should carry an error message", platform)
		}
	}
	if len(results) != 2 {
		t.Fatalf("results=%d, want 2", len(results))
	}
}

func TestPublishUnknownPlatform(t *testing.T) {
	s := NewPublishService(&fakeTokenService{}, &fakeMediaResolver{}, NewClientRegistry(
		&fakePlatformClient{platform: models.PlatformInstagram},
	))

	results := s.Publish(context.Background(), 42, &transfer.MediaReference{FileKey: "file-1"}, []transfer.PublishTarget{
		{Name: "myspace", AccountIDs: []int64{1}},
		{Name: models.PlatformInstagram, AccountIDs: []int64{2}},
	}, map[string]string{})

	if results["myspace"].Success {
		t.Fatal("unknown platform should fail")
	}
	if !results[models.PlatformInstagram].Success {
		t.Fatalf("instagram result: %+v", results[models.PlatformInstagram])
	}
}

func TestPublishNoAccountSelected(t *testing.T) {
	tokens := &fakeTokenService{}
	s := NewPublishService(tokens, &fakeMediaResolver{}, NewClientRegistry(
		&fakePlatformClient{platform: models.PlatformInstagram},
	))

	results := s.Publish(context.Background(), 42, &transfer.MediaReference{FileKey: "file-1"}, []transfer.PublishTarget{
		{Name: models.PlatformInstagram},
	}, map[string]string{})

	if results[models.PlatformInstagram].Success {
		t.Fatal("empty account selection should fail")
	}
	if tokens.calls != 0 {
		t.Fatalf("credentials looked up %d times, want 0", tokens.calls)
	}
}

func TestPublishTokenFailureContainedPerTarget(t *testing.T) {
	tokens := &fakeTokenService{err: &TokenRefreshError{Platform: models.PlatformTiktok, Err: errors.New("expired grant")}}
	s := NewPublishService(tokens, &fakeMediaResolver{}, NewClientRegistry(
		&fakePlatformClient{platform: models.PlatformTiktok},
	))

	results := s.Publish(context.Background(), 42, &transfer.MediaReference{FileKey: "file-1"}, []transfer.PublishTarget{
		{Name: models.PlatformTiktok, AccountIDs: []int64{2}},
	}, map[string]string{})

	if results[models.PlatformTiktok].Success {
		t.Fatal("token failure should fail the target")
	}
}
