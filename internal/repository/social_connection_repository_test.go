package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ismaelcompsci/postall/internal/models"
)

func newMockRepo(t *testing.T) (SocialConnectionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewSocialConnectionRepository(db), mock, func() { _ = db.Close() }
}

func TestUpsertReconnectKeepsOneRow(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	conn := &models.SocialConnection{
		UserID:           42,
		Platform:         models.PlatformInstagram,
		PlatformUserID:   "ext-1",
		PlatformUsername: "someone",
		AccessToken:      "cipher-a",
	}

	// First connect inserts; reconnect with a new token conflicts on the
	// natural key and updates the same row.
	mock.ExpectQuery(`(?s)INSERT INTO social_connections.*ON CONFLICT \(user_id, platform, platform_user_id\) DO UPDATE`).
		WithArgs(int64(42), models.PlatformInstagram, "ext-1", "someone", "", "cipher-a", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	mock.ExpectQuery(`(?s)INSERT INTO social_connections.*ON CONFLICT \(user_id, platform, platform_user_id\) DO UPDATE`).
		WithArgs(int64(42), models.PlatformInstagram, "ext-1", "someone", "", "cipher-b", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	firstID, err := repo.Upsert(context.Background(), nil, conn)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	conn.AccessToken = "cipher-b"
	secondID, err := repo.Upsert(context.Background(), nil, conn)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if firstID != secondID {
		t.Fatalf("ids differ: %d vs %d", firstID, secondID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestGetByKeysNoMatchReturnsNil(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`FROM social_connections\s+WHERE id = \$1 AND user_id = \$2 AND platform = \$3`).
		WithArgs(int64(7), int64(42), models.PlatformTiktok).
		WillReturnError(sql.ErrNoRows)

	conn, err := repo.GetByKeys(context.Background(), 7, 42, models.PlatformTiktok)
	if err != nil {
		t.Fatalf("GetByKeys: %v", err)
	}
	if conn != nil {
		t.Fatalf("conn=%+v, want nil", conn)
	}
}

func TestGetByKeysScansRow(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "platform", "platform_user_id", "platform_username",
		"profile_picture_url", "access_token", "refresh_token", "token_expires_at",
		"refresh_token_expires_at", "created_at", "updated_at",
	}).AddRow(
		int64(7), int64(42), models.PlatformTiktok, "ext-1", "someone",
		"https://avatar.example/a.png", "cipher-a", "cipher-r",
		now.Add(time.Hour), nil, now, now,
	)

	mock.ExpectQuery(`FROM social_connections\s+WHERE id = \$1 AND user_id = \$2 AND platform = \$3`).
		WithArgs(int64(7), int64(42), models.PlatformTiktok).
		WillReturnRows(rows)

	conn, err := repo.GetByKeys(context.Background(), 7, 42, models.PlatformTiktok)
	if err != nil {
		t.Fatalf("GetByKeys: %v", err)
	}
	if conn == nil {
		t.Fatal("conn is nil")
	}
	if conn.PlatformUserID != "ext-1" || !conn.RefreshToken.Valid {
		t.Fatalf("conn=%+v", conn)
	}
}

func TestUpdateTokensMissingRow(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE social_connections`).
		WithArgs(int64(99), "cipher-a", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTokens(context.Background(), 99, &models.SocialConnection{AccessToken: "cipher-a"})
	if err != sql.ErrNoRows {
		t.Fatalf("err=%v, want sql.ErrNoRows", err)
	}
}

func TestListExpiring(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	until := time.Now().Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "platform", "access_token", "refresh_token", "token_expires_at"}).
		AddRow(int64(7), int64(42), models.PlatformTiktok, "cipher-a", "cipher-r", until.Add(-time.Hour))

	mock.ExpectQuery(`token_expires_at < \$1\s+AND refresh_token IS NOT NULL`).
		WithArgs(until).
		WillReturnRows(rows)

	connections, err := repo.ListExpiring(context.Background(), until)
	if err != nil {
		t.Fatalf("ListExpiring: %v", err)
	}
	if len(connections) != 1 || connections[0].ID != 7 {
		t.Fatalf("connections=%+v", connections)
	}
}

func TestCheckByUserID(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT 1 FROM social_connections WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(7), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	mock.ExpectQuery(`SELECT 1 FROM social_connections WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(7), int64(43)).
		WillReturnError(sql.ErrNoRows)

	owned, err := repo.CheckByUserID(context.Background(), 7, 42)
	if err != nil || !owned {
		t.Fatalf("owned=%v err=%v", owned, err)
	}

	notOwned, err := repo.CheckByUserID(context.Background(), 7, 43)
	if err != nil || notOwned {
		t.Fatalf("notOwned=%v err=%v", notOwned, err)
	}
}
