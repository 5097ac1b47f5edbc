package models

import "time"

// ActionSuccess is the generic success envelope.
type ActionSuccess struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

func NewActionSuccess(message string) ActionSuccess {
	return ActionSuccess{Kind: "ActionSuccess", Message: message}
}

// Count reports message counts from send and unread-count operations.
type Count struct {
	Kind           string `json:"kind"`
	Message        string `json:"message,omitempty"`
	SentMessages   *int   `json:"sentMessages,omitempty"`
	UnreadMessages *int64 `json:"unreadMessages,omitempty"`
}

func NewCount(message string) Count {
	return Count{Kind: "Count", Message: message}
}

// PageOfMessages is one page of messages in reverse chronological order.
// NextFrom is only present when the page was full, see MessageService.List.
type PageOfMessages struct {
	Kind     string     `json:"kind"`
	From     time.Time  `json:"from"`
	Limit    int        `json:"limit"`
	Count    int        `json:"count"`
	Elements []Message  `json:"elements"`
	NextFrom *time.Time `json:"nextFrom,omitempty"`
	NextPage string     `json:"nextPage,omitempty"`
}

// UserInfo describes the authenticated caller.
type UserInfo struct {
	Kind           string `json:"kind"`
	CheckinUserID  string `json:"checkinUserId,omitempty"`
	UserName       string `json:"userName,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	FullName       string `json:"fullName,omitempty"`
	Email          string `json:"email,omitempty"`
	EmailVerified  bool   `json:"emailVerified,omitempty"`
	AssuranceLevel string `json:"assuranceLevel,omitempty"`
}

// User is the compact form used when listing role holders.
type User struct {
	CheckinUserID string `json:"checkinUserId,omitempty"`
	FullName      string `json:"fullName,omitempty"`
	Email         string `json:"email,omitempty"`
}

// RoleInfo lists the users holding a role within an IMS process.
type RoleInfo struct {
	Kind    string `json:"kind"`
	Role    string `json:"role"`
	Process string `json:"process,omitempty"`
	Users   []User `json:"users,omitempty"`
}
