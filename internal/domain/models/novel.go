package models

import "time"

// Novel is a user-owned story world. Background and character settings are
// free-form text fed into chapter generation prompts.
type Novel struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Title             string    `json:"title"`
	Genre             string    `json:"genre"`
	Description       string    `json:"description"`
	BackgroundSetting string    `json:"background_setting"`
	CharacterSetting  string    `json:"character_setting"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
