package structs

import (
	"strings"
)

type Status string

const (
	// transient states
	QUEUED  Status = "queued"
	LEASED  Status = "leased"
	RUNNING Status = "running"

	// end states
	DONE   Status = "done"
	FAILED Status = "failed"
)

func IsFinalStatus(status Status) bool {
	switch status {
	case DONE, FAILED:
		return true
	default:
		return false
	}
}

func ToStatus(s string) Status {
	switch strings.ToLower(s) {
	case "queued":
		return QUEUED
	case "leased":
		return LEASED
	case "running":
		return RUNNING
	case "done":
		return DONE
	case "failed":
		return FAILED
	default:
		return ""
	}
}
