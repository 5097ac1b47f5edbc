package models

import "time"

// Message represents a notification message addressed to one user (PostgreSQL).
// Only the recipient identified by CheckinUserID may see or mutate it, and the
// read flag is the only field that ever changes after creation.
type Message struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Message       string    `json:"message" gorm:"size:2048;not null"` // Markdown
	Category      string    `json:"category,omitempty" gorm:"size:120"`
	Link          string    `json:"url,omitempty"` // Optional action link
	CheckinUserID string    `json:"checkinUserId" gorm:"size:120;not null;index"`
	WasRead       bool      `json:"wasRead" gorm:"default:false;index"`
	SentOn        time.Time `json:"sentOn" gorm:"autoCreateTime;index"`
	ChangedOn     time.Time `json:"-" gorm:"autoUpdateTime"`
}

// SendMessageRequest is the payload of the send endpoint. A message is
// addressed either to one user (checkinUserId) or to all users holding a
// role within an IMS process (process + role, both required together).
type SendMessageRequest struct {
	Message       string `json:"message" validate:"required,max=2048"`
	Category      string `json:"category,omitempty" validate:"omitempty,max=120"`
	Link          string `json:"url,omitempty"`
	CheckinUserID string `json:"checkinUserId,omitempty"`
	Process       string `json:"process,omitempty"`
	Role          string `json:"role,omitempty"`
}

// SendsToRole reports whether the request addresses role holders instead of
// a single user. Half-specified process/role pairs still count, so they can
// be rejected instead of silently falling back to direct addressing.
func (r *SendMessageRequest) SendsToRole() bool {
	return r.Process != "" || r.Role != ""
}
