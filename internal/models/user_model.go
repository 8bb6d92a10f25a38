package models

import "time"

type User struct {
	ID         int64     `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	PictureURL string    `db:"picture_url" json:"picture_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
