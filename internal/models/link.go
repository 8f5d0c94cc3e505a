package models

import (
	"time"
)

type Link struct {
	Code        string     `json:"code"`
	TargetURL   string     `json:"target_url"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	LastClicked *time.Time `json:"last_clicked"`
}

type CreateLinkInput struct {
	TargetURL  string  `json:"target_url"`
	CustomCode *string `json:"custom_code,omitempty"`
}

// Outcome итог разрешения короткого кода
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
)

type Resolution struct {
	Code      string  `json:"code"`
	Outcome   Outcome `json:"outcome"`
	TargetURL string  `json:"target_url,omitempty"`
}

type HealthStatus struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}
