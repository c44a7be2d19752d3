package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

// GetJobsToolArgs are the tool arguments for jenkins_get_jobs.
type GetJobsToolArgs struct {
	Filter string `json:"filter,omitempty" jsonschema:"Optional case-insensitive substring to filter job names"`
}

// GetJobsToolResponse is the result payload for jenkins_get_jobs.
type GetJobsToolResponse struct {
	Jobs []Job `json:"jobs"`
}

// GetJobToolArgs are the tool arguments for jenkins_get_job.
type GetJobToolArgs struct {
	Name string `json:"name" jsonschema:"Name of the Jenkins job to retrieve"`
}

// GetJobToolResponse is the detailed job information returned by jenkins_get_job.
type GetJobToolResponse = Job

// GetJobConfigToolArgs are the tool arguments for jenkins_get_job_config.
type GetJobConfigToolArgs struct {
	JobName string `json:"job_name" jsonschema:"Name/path of the Jenkins job (supports folders)"`
}

// GetJobConfigToolResponse is the config.xml payload returned by jenkins_get_job_config.
type GetJobConfigToolResponse = JobConfig

// StartJobToolArgs are the tool arguments for jenkins_start_job.
type StartJobToolArgs struct {
	JobName    string         `json:"job_name" jsonschema:"Name/path of the Jenkins job (supports folders)"`
	Parameters map[string]any `json:"parameters,omitempty" jsonschema:"Optional key/value map of build parameters"`
}

// StartJobToolResponse represents the response from jenkins_start_job
type StartJobToolResponse = StartedBuild

// WaitForRunningBuildToolArgs are the tool arguments for jenkins_wait_for_running_build.
type WaitForRunningBuildToolArgs struct {
	JobName        string `json:"job_name" jsonschema:"Name of the Jenkins job"`
	BuildNumber    int    `json:"build_number" jsonschema:"Build number"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"Maximum time to wait in seconds (default: 600)" default:"600"`
}

// WaitForRunningBuildToolResponse represents the response from jenkins_wait_for_running_build
type WaitForRunningBuildToolResponse = BuildWaitResult

// GetBuildLogsToolArgs are the tool arguments for jenkins_get_build_logs.
type GetBuildLogsToolArgs struct {
	JobName     string `json:"job_name" jsonschema:"Name of the Jenkins job"`
	BuildNumber int    `json:"build_number" jsonschema:"Build number"`
	Offset      int    `json:"offset,omitempty" jsonschema:"Starting byte offset in the log file (default: 0)" default:"0"`
	Length      int    `json:"length,omitempty" jsonschema:"Maximum number of bytes to retrieve (default: 8192)" default:"8192"`
}

// GetBuildLogTailToolArgs are the tool arguments for jenkins_get_build_log_tail.
type GetBuildLogTailToolArgs struct {
	JobName     string `json:"job_name" jsonschema:"Name of the Jenkins job"`
	BuildNumber int    `json:"build_number" jsonschema:"Build number"`
	MaxLength   int    `json:"max_length,omitempty" jsonschema:"Maximum bytes from end of log to retrieve (default: 8192)" default:"8192"`
}

// GetRunningBuildsToolArgs are the tool arguments for jenkins_get_running_builds.
type GetRunningBuildsToolArgs struct {
	// No arguments
}

// GetRunningBuildsToolResponse contains the list of currently running builds.
type GetRunningBuildsToolResponse struct {
	Builds []RunningBuild `json:"builds"`
}

// GetQueuedBuildsToolArgs are the tool arguments for jenkins_get_queued_builds.
type GetQueuedBuildsToolArgs struct {
	// No arguments
}

// GetQueuedBuildsToolResponse contains the list of queued builds.
type GetQueuedBuildsToolResponse struct {
	Builds []QueuedBuild `json:"queuedBuilds"`
}

// CheckConnectionToolArgs are the tool arguments for jenkins_check_connection.
type CheckConnectionToolArgs struct {
	// No arguments
}

// CheckConnectionToolResponse reports the outcome of jenkins_check_connection.
type CheckConnectionToolResponse = ConnectionStatus

// toolRegistrars is the operation registry: every tool the server exposes is
// one entry here, and the per-request server factory ranges over the slice.
// Adding an operation means appending its registrar, nothing else changes.
var toolRegistrars = []func(*mcp.Server, *JenkinsClient){
	registerGetJobs,
	registerGetJob,
	registerGetJobConfig,
	registerStartJob,
	registerWaitForRunningBuild,
	registerGetBuildLogs,
	registerGetBuildLogTail,
	registerGetRunningBuilds,
	registerGetQueuedBuilds,
	registerCheckConnection,
}

func registerGetJobs(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_jobs",
		Description: "Get list of Jenkins jobs with their current status and build parameters",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_jobs",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetJobsToolArgs) (*mcp.CallToolResult, GetJobsToolResponse, error) {
				jobs, err := c.getJobs(ctx, args.Filter)
				if err != nil {
					return nil, GetJobsToolResponse{}, err
				}
				return structuredResult(GetJobsToolResponse{Jobs: jobs})
			}))
}

func registerGetJob(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_job",
		Description: "Get detailed information about a specific Jenkins job by name",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_job",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetJobToolArgs) (*mcp.CallToolResult, Job, error) {
				if strings.TrimSpace(args.Name) == "" {
					return nil, Job{}, fmt.Errorf("missing required argument: name")
				}
				job, err := c.getJob(ctx, args.Name)
				if err != nil {
					return nil, Job{}, err
				}
				return structuredResult(*job)
			}))
}

func registerGetJobConfig(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_job_config",
		Description: "Get a job's raw config.xml along with the build parameters parsed from it",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_job_config",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetJobConfigToolArgs) (*mcp.CallToolResult, JobConfig, error) {
				if strings.TrimSpace(args.JobName) == "" {
					return nil, JobConfig{}, fmt.Errorf("missing required argument: job_name")
				}
				config, err := c.getJobConfig(ctx, args.JobName)
				if err != nil {
					return nil, JobConfig{}, err
				}
				return structuredResult(*config)
			}))
}

func registerStartJob(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_start_job",
		Description: "Trigger a Jenkins job build with optional parameters"},
		instrument(c, "jenkins_start_job",
			func(ctx context.Context, req *mcp.CallToolRequest, args StartJobToolArgs) (*mcp.CallToolResult, StartedBuild, error) {
				if strings.TrimSpace(args.JobName) == "" {
					return nil, StartedBuild{}, fmt.Errorf("missing required argument: job_name")
				}
				started, err := c.startJob(ctx, args.JobName, args.Parameters)
				if err != nil {
					return nil, StartedBuild{}, err
				}
				return structuredResult(*started)
			}))
}

func registerWaitForRunningBuild(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_wait_for_running_build",
		Description: "Wait for a running Jenkins build to complete or timeout"},
		instrument(c, "jenkins_wait_for_running_build",
			func(ctx context.Context, req *mcp.CallToolRequest, args WaitForRunningBuildToolArgs) (*mcp.CallToolResult, BuildWaitResult, error) {
				if strings.TrimSpace(args.JobName) == "" {
					return nil, BuildWaitResult{}, fmt.Errorf("missing required argument: job_name")
				}
				if args.BuildNumber <= 0 {
					return nil, BuildWaitResult{}, fmt.Errorf("missing or invalid required argument: build_number")
				}
				if args.TimeoutSeconds <= 0 {
					args.TimeoutSeconds = 600
				}
				result, err := c.waitForBuild(ctx, args.JobName, args.BuildNumber, time.Duration(args.TimeoutSeconds)*time.Second)
				if err != nil {
					return nil, BuildWaitResult{}, err
				}
				return structuredResult(*result)
			}))
}

func registerGetBuildLogs(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_build_logs",
		Description: "Get build logs for a specific Jenkins job and build number starting at given offset",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_build_logs",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetBuildLogsToolArgs) (*mcp.CallToolResult, any, error) {
				if strings.TrimSpace(args.JobName) == "" {
					return nil, nil, fmt.Errorf("missing required argument: job_name")
				}
				if args.BuildNumber <= 0 {
					return nil, nil, fmt.Errorf("missing or invalid required argument: build_number (must be > 0)")
				}
				if args.Length <= 0 {
					args.Length = 8192
				}
				args.Offset = max(0, args.Offset)
				logsResponse, err := c.getBuildLogs(ctx, args.JobName, args.BuildNumber, args.Offset, args.Length)
				if err != nil {
					return nil, nil, err
				}
				var res mcp.CallToolResult
				res.Content = []mcp.Content{&mcp.TextContent{Text: logsResponse.Logs}}
				return &res, nil, nil
			}))
}

func registerGetBuildLogTail(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_build_log_tail",
		Description: "Get the tail of build logs for a specific Jenkins job and build number",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_build_log_tail",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetBuildLogTailToolArgs) (*mcp.CallToolResult, any, error) {
				if strings.TrimSpace(args.JobName) == "" {
					return nil, nil, fmt.Errorf("missing required argument: job_name")
				}
				if args.BuildNumber <= 0 {
					return nil, nil, fmt.Errorf("missing or invalid required argument: build_number (must be > 0)")
				}
				if args.MaxLength <= 0 {
					args.MaxLength = 8192
				}
				logsResponse, err := c.getBuildLogTail(ctx, args.JobName, args.BuildNumber, args.MaxLength)
				if err != nil {
					return nil, nil, err
				}
				var res mcp.CallToolResult
				res.Content = []mcp.Content{&mcp.TextContent{Text: logsResponse.Logs}}
				return &res, nil, nil
			}))
}

func registerGetRunningBuilds(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_running_builds",
		Description: "Get list of currently running Jenkins builds",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_running_builds",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetRunningBuildsToolArgs) (*mcp.CallToolResult, GetRunningBuildsToolResponse, error) {
				builds, err := c.getRunningBuilds(ctx)
				if err != nil {
					return nil, GetRunningBuildsToolResponse{}, err
				}
				return structuredResult(GetRunningBuildsToolResponse{Builds: builds})
			}))
}

func registerGetQueuedBuilds(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_get_queued_builds",
		Description: "Get builds currently waiting in the Jenkins queue",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_get_queued_builds",
			func(ctx context.Context, req *mcp.CallToolRequest, args GetQueuedBuildsToolArgs) (*mcp.CallToolResult, GetQueuedBuildsToolResponse, error) {
				queued, err := c.getQueuedBuilds(ctx)
				if err != nil {
					return nil, GetQueuedBuildsToolResponse{}, err
				}
				return structuredResult(GetQueuedBuildsToolResponse{Builds: queued})
			}))
}

func registerCheckConnection(s *mcp.Server, c *JenkinsClient) {
	addTool(s, &mcp.Tool{
		Name:        "jenkins_check_connection",
		Description: "Verify the Jenkins endpoint and credentials, returning the server version",
		Annotations: readOnlyAnnotations()},
		instrument(c, "jenkins_check_connection",
			func(ctx context.Context, req *mcp.CallToolRequest, args CheckConnectionToolArgs) (*mcp.CallToolResult, ConnectionStatus, error) {
				status, err := c.checkConnection(ctx)
				if err != nil {
					return nil, ConnectionStatus{}, err
				}
				return structuredResult(*status)
			}))
}

func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true}
}

// instrument wraps a tool handler with the per-call metric and log line.
func instrument[In, Out any](c *JenkinsClient, tool string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		res, out, err := h(ctx, req, args)
		outcome := errorKind(err)
		metricToolCalls.WithLabelValues(tool, outcome).Inc()
		entry := c.log.WithFields(log.Fields{
			"tool":     tool,
			"outcome":  outcome,
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("Tool call failed")
		} else {
			entry.Info("Tool call completed")
		}
		return res, out, err
	}
}

func addTool[In, Out any](s *mcp.Server, t *mcp.Tool, h mcp.ToolHandlerFor[In, Out]) {
	t.InputSchema = jsonschemaForExt[In]()
	mcp.AddTool(s, t, h)
}

func structuredResult[Out any](out Out) (*mcp.CallToolResult, Out, error) {
	b, err := json.Marshal(out)
	if err != nil {
		var zero Out
		return nil, zero, err
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(b)}},
		StructuredContent: out,
	}, out, nil
}
