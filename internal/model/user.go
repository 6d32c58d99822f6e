package model

import "time"

type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type NotificationSettings struct {
	EmailNotifications bool `json:"email_notifications"`
	PushNotifications  bool `json:"push_notifications"`
	LearningReminders  bool `json:"learning_reminders"`
	ProgressUpdates    bool `json:"progress_updates"`
}

type Preferences struct {
	ExplanationStyle     string               `json:"explanation_style"`
	PreferredLanguages   []string             `json:"preferred_languages"`
	LearningGoals        []string             `json:"learning_goals"`
	NotificationSettings NotificationSettings `json:"notification_settings"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		ExplanationStyle:   "detailed",
		PreferredLanguages: []string{},
		LearningGoals:      []string{},
		NotificationSettings: NotificationSettings{
			EmailNotifications: true,
			PushNotifications:  true,
			LearningReminders:  true,
			ProgressUpdates:    true,
		},
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
