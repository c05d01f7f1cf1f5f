package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Review represents one customer review captured from the business listing.
// It is the canonical record shared by the collector, the store and the poster.
type Review struct {
	ReviewID           string
	ListingID          string
	ReviewerName       string
	ReviewerProfileURL string
	IsLocalGuide       bool
	ReviewCount        *int
	PhotoCount         *int
	Rating             int
	ReviewTime         string // stored verbatim, e.g. "2 weeks ago"
	ReviewText         string
	ShareURL           string
	DineIn             string
	Session            string
	PriceRange         string
	FoodRating         *int
	ServiceRating      *int
	AtmosphereRating   *int
	Images             []string
	HasResponse        bool
	CollectedAt        time.Time
}

// Validate checks the fields a review cannot exist without.
func (r *Review) Validate() error {
	if strings.TrimSpace(r.ReviewID) == "" {
		return errors.New("missing review id")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating %d out of range", r.Rating)
	}
	return nil
}

// Response statuses
const (
	ResponseGenerated = "generated"
	ResponsePosted    = "posted"
)

// GeneratedResponse is an AI-drafted reply tied to one review.
type GeneratedResponse struct {
	ID           string
	ReviewID     string
	ResponseText string
	Sentiment    string
	Issues       string
	Status       string
	GeneratedAt  time.Time
	PostedAt     *time.Time
}

// PendingReply joins a generated response with the review it answers.
type PendingReply struct {
	Response GeneratedResponse
	Review   Review
}

// Process types recorded in run logs
const (
	ProcessCollection = "collection"
	ProcessGeneration = "generation"
	ProcessPosting    = "posting"
)

// Run statuses
const (
	RunStarted   = "started"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunCounts are the aggregate counters attached to a finished run.
type RunCounts struct {
	ReviewsProcessed   int
	NewReviews         int
	ResponsesGenerated int
	ResponsesPosted    int
}

// RunLog is the audit entry of one pipeline execution.
type RunLog struct {
	ID          string
	ProcessType string
	Status      string
	RunCounts
	DurationSeconds float64
	ErrorMessage    string
	Details         string // JSON object
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// RunSummary is the aggregate consumed by notifiers.
type RunSummary struct {
	TotalReviews     int
	UnrepliedReviews int
	RecentRuns       []RunLog // newest first
}

// LatestRun returns the most recent run of the given process type, or nil.
func (s *RunSummary) LatestRun(processType string) *RunLog {
	for i := range s.RecentRuns {
		if s.RecentRuns[i].ProcessType == processType {
			return &s.RecentRuns[i]
		}
	}
	return nil
}
