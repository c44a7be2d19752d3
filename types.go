package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Job represents a Jenkins job with its current status
type Job struct {
	Name                string           `json:"name"`
	URL                 string           `json:"url"`
	Color               string           `json:"color"`                         // Jenkins color coding (blue, red, yellow, etc.)
	Buildable           bool             `json:"buildable"`                     // Whether the job can be built
	InQueue             bool             `json:"inQueue"`                       // Whether a build is waiting in the queue
	Description         string           `json:"description"`                   // Job description
	NextBuildNumber     int              `json:"nextBuildNumber,omitempty"`     // Number the next build will get
	LastBuild           *Build           `json:"lastBuild,omitempty"`           // Most recent build info
	LastCompletedBuild  *Build           `json:"lastCompletedBuild,omitempty"`  // Most recent finished build
	LastSuccessfulBuild *Build           `json:"lastSuccessfulBuild,omitempty"` // Most recent successful build
	LastFailedBuild     *Build           `json:"lastFailedBuild,omitempty"`     // Most recent failed build
	RecentBuilds        []Build          `json:"recentBuilds,omitempty"`        // Last 10 builds
	HasParameters       bool             `json:"hasParameters"`                 // Whether the job defines build parameters
	Parameters          []BuildParameter `json:"parameters"`                    // Build parameters
	Health              []HealthReport   `json:"healthReport,omitempty"`        // Aggregated job health
	QueuedBuilds        []QueuedBuild    `json:"queuedBuilds,omitempty"`        // Queued builds for this job
}

// HealthReport is one entry of a job's aggregated health.
type HealthReport struct {
	Score       int    `json:"score"`
	Description string `json:"description"`
}

// BuildParameter represents a Jenkins build parameter
type BuildParameter struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	DefaultValue any      `json:"defaultValue"`
	Choices      []string `json:"choices,omitempty"` // For choice parameters
}

// Build represents a Jenkins build
type Build struct {
	Number            int        `json:"number"`
	URL               string     `json:"url"`
	Building          bool       `json:"building"`
	Result            string     `json:"result"`            // SUCCESS, FAILURE, UNSTABLE, ABORTED, null if building
	Timestamp         TimeMS     `json:"timestamp"`         // RFC3339 timestamp
	Duration          DurationMS `json:"duration"`          // Human-readable in output, parses from ms
	EstimatedDuration DurationMS `json:"estimatedDuration"` // Human-readable in output, parses from ms
	DisplayName       string     `json:"displayName"`
	QueueID           int        `json:"queueId,omitempty"`  // Queue item the build came from
	Culprits          []Culprit  `json:"culprits,omitempty"` // Committers since the last stable build
}

// Culprit identifies a user whose change is in a (typically broken) build.
type Culprit struct {
	FullName string `json:"fullName"`
}

// RunningBuild represents a currently running Jenkins build
type RunningBuild struct {
	JobName     string     `json:"jobName"`
	BuildNumber int        `json:"buildNumber"`
	URL         string     `json:"url"`
	StartTime   TimeMS     `json:"startTime"`          // RFC3339 timestamp
	Duration    DurationMS `json:"duration"`           // Current duration (human-readable)
	Progress    *int       `json:"progress,omitempty"` // Progress percentage (if available)
}

// QueuedBuild represents a queued Jenkins build item
type QueuedBuild struct {
	JobName     string `json:"jobName"`
	URL         string `json:"url"`
	QueueID     int    `json:"queueId"`
	Why         string `json:"why"`
	QueuedSince TimeMS `json:"queuedSince"`
	Stuck       bool   `json:"stuck"`
	Buildable   bool   `json:"buildable"`
	Parameters  string `json:"parameters,omitempty"`
}

// BuildLogs describes a slice of a Jenkins build log and related metadata.
type BuildLogs struct {
	JobName     string `json:"jobName"`
	BuildNumber int    `json:"buildNumber"`
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	TotalSize   int    `json:"totalSize"`
	HasMore     bool   `json:"hasMore"`
	Logs        string `json:"logs"`
}

// StartedBuild is the outcome of triggering a job: the queue item the build
// went through and, if the queue resolved in time, the assigned build.
type StartedBuild struct {
	JobName     string `json:"jobName"`
	QueueURL    string `json:"queueUrl,omitempty"`
	BuildURL    string `json:"buildUrl,omitempty"`
	BuildNumber int    `json:"buildNumber,omitempty"`
}

// BuildWaitResult reports how waiting on a build ended.
type BuildWaitResult struct {
	JobName     string     `json:"jobName"`
	BuildNumber int        `json:"buildNumber"`
	Status      string     `json:"status"`   // "success", "failure", "unstable", "aborted", "timeout"
	Result      string     `json:"result"`   // Jenkins result string (SUCCESS, FAILURE, UNSTABLE, ABORTED, or empty if timeout)
	Duration    DurationMS `json:"duration"` // Total build duration (human-readable)
	WaitTime    DurationMS `json:"waitTime"` // Time spent waiting (human-readable)
	TimedOut    bool       `json:"timedOut"` // Whether the wait operation timed out
}

// JobConfig carries a job's raw config.xml together with the parameter
// definitions parsed out of it.
type JobConfig struct {
	JobName       string           `json:"jobName"`
	ConfigXML     string           `json:"configXml"`
	HasParameters bool             `json:"hasParameters"`
	Parameters    []BuildParameter `json:"parameters"`
}

// ConnectionStatus is the outcome of probing the configured Jenkins endpoint
// with the supplied credentials.
type ConnectionStatus struct {
	OK       bool   `json:"ok"`
	URL      string `json:"url"`
	User     string `json:"user"`
	Version  string `json:"version,omitempty"`  // From the X-Jenkins response header
	NodeName string `json:"nodeName,omitempty"`
}

// DurationMS is a JSON-friendly duration that unmarshals from milliseconds (number)
// and marshals to a human-readable string (e.g., "5m10s").
type DurationMS time.Duration

// UnmarshalJSON parses a duration from milliseconds or string into DurationMS.
func (d *DurationMS) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = 0
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		*d = DurationMS(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if dur, err := time.ParseDuration(s); err == nil {
			*d = DurationMS(dur)
			return nil
		}
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			*d = DurationMS(time.Duration(v) * time.Millisecond)
			return nil
		}
	}
	return fmt.Errorf("invalid duration value: %s", string(b))
}

// MarshalJSON encodes DurationMS as a human-readable string (e.g., "5m10s").
func (d DurationMS) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// TimeMS is a JSON-friendly time that unmarshals from milliseconds-since-epoch (number)
// and marshals to an RFC3339 timestamp string (UTC).
type TimeMS time.Time

// UnmarshalJSON parses a timestamp from milliseconds or RFC3339 string into TimeMS.
func (t *TimeMS) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = TimeMS(time.Time{})
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		sec := ms / 1000
		nsec := (ms % 1000) * int64(time.Millisecond)
		*t = TimeMS(time.Unix(sec, nsec))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			*t = TimeMS(time.Time{})
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*t = TimeMS(parsed)
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			*t = TimeMS(parsed)
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			sec := ms / 1000
			nsec := (ms % 1000) * int64(time.Millisecond)
			*t = TimeMS(time.Unix(sec, nsec))
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp value: %s", string(b))
}

// MarshalJSON encodes TimeMS as an RFC3339 UTC timestamp string.
func (t TimeMS) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(tt.UTC().Format(time.RFC3339))
}
