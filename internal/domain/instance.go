package domain

import "time"

// Instance is the organisational tenant: it scopes users, quizzes, seasons,
// and digest notifications. One digest message is composed per instance.
type Instance struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// DigestWebhookURL is the per-instance inbound webhook for digest
	// delivery. Nil when the instance has not configured one.
	DigestWebhookURL *string `json:"digest_webhook_url,omitempty"`
	// DigestEmail enables email digest delivery for this instance.
	DigestEmail bool `json:"digest_email"`

	CreatedAt time.Time `json:"created_at"`
}

// User is a member of an instance.
type User struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`

	// NotifyDigest marks the user as subscribed to digest notifications.
	NotifyDigest bool `json:"notify_digest"`

	CreatedAt time.Time `json:"created_at"`
}

// Season is a scoring period within an instance. Season listings are always
// ordered chronologically by StartsAt.
type Season struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instance_id"`
	Name       string    `json:"name"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}
