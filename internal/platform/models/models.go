package models

import "unicode/utf8"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleParent  = "parent"
	RoleStaff   = "staff"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleStaff:
		return true
	}
	return false
}

// MaxCodeLength is the longest user code a card can carry intact. Card
// payloads cut the code at this many runes.
const MaxCodeLength = 10

// ValidCode reports whether code fits on a card without truncation.
func ValidCode(code string) bool {
	return utf8.RuneCountInString(code) <= MaxCodeLength
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	PhotoURL     string `json:"photo_url,omitempty"`
	Code         string `json:"code,omitempty"`
	Category     string `json:"category,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Parent is the notification profile of a parent account and the students
// linked to it.
type Parent struct {
	UserID            string   `json:"user_id"`
	StudentIDs        []string `json:"student_ids"`
	Phone             string   `json:"phone,omitempty"`
	NotificationEmail string   `json:"notification_email,omitempty"`
	CreatedAt         int64    `json:"created_at"`
	UpdatedAt         int64    `json:"updated_at"`
}

type ParentContact struct {
	ParentID          string `json:"parent_id"`
	ParentName        string `json:"parent_name"`
	ParentEmail       string `json:"parent_email"`
	NotificationEmail string `json:"notification_email"`
	Phone             string `json:"phone,omitempty"`
}

// Recipient is the address notifications for this contact go to.
func (c ParentContact) Recipient() string {
	if c.NotificationEmail != "" {
		return c.NotificationEmail
	}
	return c.ParentEmail
}
