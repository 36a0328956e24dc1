package model

import "time"

// Task is a queued request to build or refresh one politician's dossier
type Task struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	WikidataID string    `json:"wikidataid"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
