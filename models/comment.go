package models

import "time"

type Comment struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"taskId"`
	UserID    int       `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`

	User *PublicUser `json:"user,omitempty"`
	Task *TaskRef    `json:"task,omitempty"`
}
