package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const retryBaseDelay = 250 * time.Millisecond

// ClientOptions are the credential-free knobs shared by every request. The
// http.Clients are safe for concurrent use and pool connections per target.
type ClientOptions struct {
	Client         *http.Client
	LogsClient     *http.Client
	RetryAttempts  uint
	QueueWait      time.Duration
	QueuePollEvery time.Duration
	BuildPollEvery time.Duration
}

// JenkinsClient performs authenticated calls against one Jenkins endpoint.
// A fresh client is built per request from that request's ConnectionConfig;
// it must never outlive the request that created it.
type JenkinsClient struct {
	conn ConnectionConfig
	opts ClientOptions
	log  *log.Entry
}

func newJenkinsClient(conn ConnectionConfig, opts ClientOptions) *JenkinsClient {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: defaultRequestTimeout}
	}
	if opts.LogsClient == nil {
		opts.LogsClient = &http.Client{Timeout: defaultLogsTimeout}
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = defaultQueueWaitTimeout
	}
	if opts.QueuePollEvery <= 0 {
		opts.QueuePollEvery = defaultQueuePollInterval
	}
	if opts.BuildPollEvery <= 0 {
		opts.BuildPollEvery = defaultBuildPollInterval
	}
	return &JenkinsClient{
		conn: conn,
		opts: opts,
		log:  log.WithField("jenkins", conn.Host()),
	}
}

// buildJobPath builds a Jenkins job path supporting nested folders.
// Example: "folder1/folder2/jobName" -> "/job/folder1/job/folder2/job/jobName"
func buildJobPath(jobName string) string {
	segs := strings.Split(jobName, "/")
	var b strings.Builder
	for _, s := range segs {
		if s == "" {
			continue
		}
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// requestURL resolves apiPath against the configured base URL. Absolute
// http(s) URLs pass through untouched; Jenkins hands those out in Location
// headers and build records.
func (c *JenkinsClient) requestURL(apiPath string) string {
	base := strings.TrimRight(c.conn.URL, "/")
	switch {
	case strings.HasPrefix(apiPath, "http://"), strings.HasPrefix(apiPath, "https://"):
		return apiPath
	case apiPath == "":
		return base
	case strings.HasPrefix(apiPath, "/"):
		return base + apiPath
	default:
		return base + "/" + apiPath
	}
}

// call executes a request against Jenkins with the connection's credentials.
// The default Accept header is application/json unless overridden. Idempotent
// GETs are retried on transport failures, bounded by RetryAttempts; received
// HTTP statuses and mutations are never retried.
func (c *JenkinsClient) call(
	ctx context.Context,
	client *http.Client,
	method string,
	apiPath string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	if client == nil {
		client = c.opts.Client
	}
	fullURL := c.requestURL(apiPath)

	if method == http.MethodGet && body == nil && c.opts.RetryAttempts > 1 {
		var resp *http.Response
		err := retry.Do(
			func() error {
				r, err := c.doOnce(ctx, client, method, fullURL, nil, headers)
				if err != nil {
					if ctx.Err() != nil {
						return retry.Unrecoverable(err)
					}
					return err
				}
				resp = r
				return nil
			},
			retry.Attempts(c.opts.RetryAttempts),
			retry.Delay(retryBaseDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
		)
		return resp, err
	}
	return c.doOnce(ctx, client, method, fullURL, body, headers)
}

func (c *JenkinsClient) doOnce(
	ctx context.Context,
	client *http.Client,
	method string,
	fullURL string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s request for %s", method, fullURL)
	}
	req.SetBasicAuth(c.conn.User, c.conn.Token)
	if _, ok := headers["Accept"]; !ok {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	metricUpstreamDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metricUpstreamRequests.WithLabelValues(method, "error").Inc()
		return nil, &NetworkError{URL: fullURL, Err: err}
	}
	metricUpstreamRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// getCrumb fetches the Jenkins CSRF crumb and its header field name. A 404
// means CSRF protection is disabled; any other failure must not block the
// POST either, Jenkins will reject it itself if a crumb was required.
func (c *JenkinsClient) getCrumb(ctx context.Context) (field, crumb string, ok bool) {
	resp, err := c.call(ctx, nil, http.MethodGet, "/crumbIssuer/api/json", nil, nil)
	if err != nil {
		return "", "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", false
	}
	var data struct {
		Field string `json:"crumbRequestField"`
		Crumb string `json:"crumb"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", "", false
	}
	return data.Field, data.Crumb, data.Field != "" && data.Crumb != ""
}

// checkConnection probes the Jenkins root API with the connection's
// credentials and reports the server version.
func (c *JenkinsClient) checkConnection(ctx context.Context) (*ConnectionStatus, error) {
	resp, err := c.call(ctx, nil, http.MethodGet, "/api/json?tree=nodeName,description", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "jenkins root api"); err != nil {
		return nil, err
	}
	var data struct {
		NodeName string `json:"nodeName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "decoding root api response")
	}
	return &ConnectionStatus{
		OK:       true,
		URL:      c.conn.URL,
		User:     c.conn.User,
		Version:  resp.Header.Get("X-Jenkins"),
		NodeName: data.NodeName,
	}, nil
}

// startJob triggers a Jenkins job, optionally with parameters, and waits a
// bounded time for the queue item to resolve to a build.
func (c *JenkinsClient) startJob(ctx context.Context, jobName string, params map[string]any) (*StartedBuild, error) {
	// buildWithParameters works for both parameterized and non-parameterized
	// jobs, so there is no need to branch on the job's shape.
	apiPath := buildJobPath(jobName) + "/buildWithParameters"

	form := url.Values{}
	for k, v := range params {
		form.Set(k, fmt.Sprint(v))
	}

	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	if field, crumb, ok := c.getCrumb(ctx); ok {
		headers[field] = crumb
	}
	resp, err := c.call(ctx, nil, http.MethodPost, apiPath, strings.NewReader(form.Encode()), headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, fmt.Sprintf("job %q", jobName)); err != nil {
		return nil, err
	}

	result := &StartedBuild{JobName: jobName}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return result, nil
	}
	if strings.Contains(loc, "/queue/item/") {
		result.QueueURL = loc
		if queueID := extractQueueID(loc); queueID != "" {
			if number, buildURL := c.awaitQueueExecutable(ctx, queueID); number > 0 {
				result.BuildNumber = number
				result.BuildURL = buildURL
			}
		}
	} else if n := parseBuildNumberFromURL(loc); n > 0 {
		// Some Jenkins setups answer with the build URL directly
		result.BuildNumber = n
		result.BuildURL = loc
	}
	return result, nil
}

// extractQueueID extracts the queue item ID from a queue URL like
// "https://jenkins.example.com/queue/item/19069/".
func extractQueueID(queueURL string) string {
	parts := strings.Split(strings.TrimSuffix(queueURL, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

var errBuildPending = errors.New("build not started yet")

// awaitQueueExecutable polls a queue item until Jenkins assigns it a build.
// Returns 0 if the item is still pending when the configured wait elapses.
func (c *JenkinsClient) awaitQueueExecutable(ctx context.Context, queueID string) (int, string) {
	fullURL := c.requestURL("/queue/item/" + queueID + "/api/json")
	attempts := uint(c.opts.QueueWait/c.opts.QueuePollEvery) + 1

	var number int
	var buildURL string
	err := retry.Do(
		func() error {
			resp, err := c.doOnce(ctx, c.opts.Client, http.MethodGet, fullURL, nil, nil)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(err)
				}
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, resp.Body)
				return errors.Errorf("queue item %s returned status %d", queueID, resp.StatusCode)
			}
			var item struct {
				Executable struct {
					Number int    `json:"number"`
					URL    string `json:"url"`
				} `json:"executable"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
				return errors.Wrap(err, "decoding queue item")
			}
			if item.Executable.Number == 0 {
				return errBuildPending
			}
			number = item.Executable.Number
			buildURL = item.Executable.URL
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(c.opts.QueuePollEvery),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.log.WithError(err).Debug("Queue item did not resolve to a build in time")
		return 0, ""
	}
	return number, buildURL
}

// getBuildLogs fetches a window of build logs through the progressiveText API.
func (c *JenkinsClient) getBuildLogs(ctx context.Context, jobName string, buildNumber, offset, length int) (*BuildLogs, error) {
	jobPath := buildJobPath(jobName)
	apiPath := fmt.Sprintf("%s/%d/logText/progressiveText?start=%d", jobPath, buildNumber, offset)
	resp, err := c.call(ctx, c.opts.LogsClient, http.MethodGet, apiPath, nil, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, fmt.Sprintf("job %q build #%d", jobName, buildNumber)); err != nil {
		return nil, err
	}

	logData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading log response")
	}

	logs := string(logData)
	logs = logs[:min(len(logs), length)]

	// X-Text-Size carries the total log size; X-More-Data signals a build
	// still producing output.
	hasMore := false
	totalSize := offset + len(logData)
	if textSizeHeader := resp.Header.Get("X-Text-Size"); textSizeHeader != "" {
		if size, err := strconv.Atoi(textSizeHeader); err == nil {
			totalSize = size
			hasMore = offset+len(logs) < totalSize
		}
	} else {
		// Without the header assume there may be more if the window filled up
		hasMore = len(logData) > 0 && len(logs) == length
	}
	if resp.Header.Get("X-More-Data") == "true" {
		hasMore = true
	}

	return &BuildLogs{
		JobName:     jobName,
		BuildNumber: buildNumber,
		Offset:      offset,
		Length:      len(logs),
		TotalSize:   totalSize,
		HasMore:     hasMore,
		Logs:        logs,
	}, nil
}

// getBuildLogTail fetches the last maxLength bytes of a build's logs. It
// probes at start=0 first to learn the total size, then re-reads from the
// tail offset.
func (c *JenkinsClient) getBuildLogTail(ctx context.Context, jobName string, buildNumber, maxLength int) (*BuildLogs, error) {
	jobPath := buildJobPath(jobName)
	resource := fmt.Sprintf("job %q build #%d", jobName, buildNumber)

	sizePath := fmt.Sprintf("%s/%d/logText/progressiveText?start=0", jobPath, buildNumber)
	resp, err := c.call(ctx, c.opts.LogsClient, http.MethodGet, sizePath, nil, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, resource); err != nil {
		return nil, err
	}

	totalSize := 0
	if textSizeHeader := resp.Header.Get("X-Text-Size"); textSizeHeader != "" {
		if size, err := strconv.Atoi(textSizeHeader); err == nil {
			totalSize = size
		}
	}
	if totalSize == 0 {
		// No size header; fall back to reading the whole response
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading log response")
		}
		totalSize = len(body)
		if totalSize <= maxLength {
			return &BuildLogs{
				JobName:     jobName,
				BuildNumber: buildNumber,
				Offset:      0,
				Length:      totalSize,
				TotalSize:   totalSize,
				HasMore:     false,
				Logs:        string(body),
			}, nil
		}
	}

	offset := max(0, totalSize-maxLength)
	maxLength = min(maxLength, totalSize)

	tailPath := fmt.Sprintf("%s/%d/logText/progressiveText?start=%d", jobPath, buildNumber, offset)
	tailResp, err := c.call(ctx, c.opts.LogsClient, http.MethodGet, tailPath, nil, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return nil, err
	}
	defer tailResp.Body.Close()
	if err := statusError(tailResp, resource); err != nil {
		return nil, err
	}

	logData, err := io.ReadAll(tailResp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading log tail response")
	}

	logs := string(logData)
	keep := min(len(logs), maxLength)
	logs = logs[len(logs)-keep:]
	offset = totalSize - len(logs)

	return &BuildLogs{
		JobName:     jobName,
		BuildNumber: buildNumber,
		Offset:      offset,
		Length:      len(logs),
		TotalSize:   totalSize,
		HasMore:     tailResp.Header.Get("X-More-Data") == "true",
		Logs:        logs,
	}, nil
}

// jsonParameterDefinition is the parameter shape the Jenkins JSON API returns
// inside job properties.
type jsonParameterDefinition struct {
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	Description           string `json:"description"`
	DefaultParameterValue *struct {
		Value any `json:"value"`
	} `json:"defaultParameterValue"`
	Choices []string `json:"choices"`
}

type jsonProperty struct {
	ParameterDefinitions []jsonParameterDefinition `json:"parameterDefinitions"`
}

func buildParametersFromProperties(props []jsonProperty) []BuildParameter {
	params := []BuildParameter{}
	for _, prop := range props {
		for _, def := range prop.ParameterDefinitions {
			p := BuildParameter{
				Name:        def.Name,
				Type:        def.Type,
				Description: def.Description,
				Choices:     def.Choices,
			}
			if def.DefaultParameterValue != nil {
				p.DefaultValue = def.DefaultParameterValue.Value
			}
			params = append(params, p)
		}
	}
	return params
}

const buildTreeFields = "number,url,building,result,timestamp,duration,estimatedDuration,displayName,queueId,culprits[fullName]"
const parameterTreeFields = "property[parameterDefinitions[name,type,description,defaultParameterValue[value],choices]]"

// getJob fetches a specific job by name, including recent builds, parameter
// definitions, health and any queued builds.
func (c *JenkinsClient) getJob(ctx context.Context, jobName string) (*Job, error) {
	jobPath := buildJobPath(jobName)
	apiPath := jobPath + "/api/json?tree=" +
		"name,url,color,buildable,inQueue,description,nextBuildNumber," +
		"healthReport[score,description]," +
		"lastBuild[" + buildTreeFields + "]," +
		"lastCompletedBuild[" + buildTreeFields + "]," +
		"lastSuccessfulBuild[" + buildTreeFields + "]," +
		"lastFailedBuild[" + buildTreeFields + "]," +
		"builds[" + buildTreeFields + "]{0,10}," +
		parameterTreeFields
	resp, err := c.call(ctx, nil, http.MethodGet, apiPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, fmt.Sprintf("job %q", jobName)); err != nil {
		return nil, err
	}

	var jobData struct {
		Name                string         `json:"name"`
		URL                 string         `json:"url"`
		Color               string         `json:"color"`
		Buildable           bool           `json:"buildable"`
		InQueue             bool           `json:"inQueue"`
		Description         string         `json:"description"`
		NextBuildNumber     int            `json:"nextBuildNumber"`
		HealthReport        []HealthReport `json:"healthReport"`
		LastBuild           *Build         `json:"lastBuild"`
		LastCompletedBuild  *Build         `json:"lastCompletedBuild"`
		LastSuccessfulBuild *Build         `json:"lastSuccessfulBuild"`
		LastFailedBuild     *Build         `json:"lastFailedBuild"`
		Builds              []Build        `json:"builds"`
		Property            []jsonProperty `json:"property"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jobData); err != nil {
		return nil, errors.Wrap(err, "decoding job response")
	}

	params := buildParametersFromProperties(jobData.Property)
	recentBuilds := jobData.Builds
	sort.Slice(recentBuilds, func(i, j int) bool {
		return recentBuilds[i].Number > recentBuilds[j].Number
	})

	job := &Job{
		Name:                jobData.Name,
		URL:                 jobData.URL,
		Color:               jobData.Color,
		Buildable:           jobData.Buildable,
		InQueue:             jobData.InQueue,
		Description:         jobData.Description,
		NextBuildNumber:     jobData.NextBuildNumber,
		LastBuild:           jobData.LastBuild,
		LastCompletedBuild:  jobData.LastCompletedBuild,
		LastSuccessfulBuild: jobData.LastSuccessfulBuild,
		LastFailedBuild:     jobData.LastFailedBuild,
		RecentBuilds:        recentBuilds,
		HasParameters:       len(params) > 0,
		Parameters:          params,
		Health:              jobData.HealthReport,
	}

	// Attach queued builds that belong to this job; the queue endpoint being
	// unavailable is not a reason to fail the lookup.
	if queuedAll, err := c.getQueuedBuilds(ctx); err == nil {
		for _, qb := range queuedAll {
			if strings.HasPrefix(qb.URL, job.URL) {
				job.QueuedBuilds = append(job.QueuedBuilds, qb)
			}
		}
	}

	return job, nil
}

// getJobs fetches all jobs, each with its last build and parameter
// definitions. A non-empty filter keeps only jobs whose name contains it,
// case-insensitively.
func (c *JenkinsClient) getJobs(ctx context.Context, filter string) ([]Job, error) {
	apiPath := "/api/json?tree=jobs[" +
		"name,url,color,buildable,inQueue,description," +
		"lastBuild[" + buildTreeFields + "]," +
		parameterTreeFields +
		"]"
	resp, err := c.call(ctx, nil, http.MethodGet, apiPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "job list"); err != nil {
		return nil, err
	}

	var apiResp struct {
		Jobs []struct {
			Name        string         `json:"name"`
			URL         string         `json:"url"`
			Color       string         `json:"color"`
			Buildable   bool           `json:"buildable"`
			InQueue     bool           `json:"inQueue"`
			Description string         `json:"description"`
			LastBuild   *Build         `json:"lastBuild"`
			Property    []jsonProperty `json:"property"`
		} `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, errors.Wrap(err, "decoding job list response")
	}

	filter = strings.ToLower(strings.TrimSpace(filter))
	jobs := []Job{}
	for _, jobData := range apiResp.Jobs {
		if filter != "" && !strings.Contains(strings.ToLower(jobData.Name), filter) {
			continue
		}
		params := buildParametersFromProperties(jobData.Property)
		jobs = append(jobs, Job{
			Name:          jobData.Name,
			URL:           jobData.URL,
			Color:         jobData.Color,
			Buildable:     jobData.Buildable,
			InQueue:       jobData.InQueue,
			Description:   jobData.Description,
			LastBuild:     jobData.LastBuild,
			HasParameters: len(params) > 0,
			Parameters:    params,
		})
	}
	return jobs, nil
}

// getJobConfig fetches a job's raw config.xml and parses the build parameter
// definitions out of it.
func (c *JenkinsClient) getJobConfig(ctx context.Context, jobName string) (*JobConfig, error) {
	apiPath := buildJobPath(jobName) + "/config.xml"
	resp, err := c.call(ctx, nil, http.MethodGet, apiPath, nil, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, fmt.Sprintf("job %q", jobName)); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading config.xml")
	}
	params, hasParams, err := parseParameters(raw)
	if err != nil {
		return nil, err
	}
	return &JobConfig{
		JobName:       jobName,
		ConfigXML:     string(raw),
		HasParameters: hasParams,
		Parameters:    params,
	}, nil
}

// getBuildDetails fetches detailed information about a specific build.
func (c *JenkinsClient) getBuildDetails(ctx context.Context, buildURL string) (*Build, error) {
	apiURL := strings.TrimRight(buildURL, "/") + "/api/json"
	resp, err := c.call(ctx, nil, http.MethodGet, apiURL, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, fmt.Sprintf("build at %s", buildURL)); err != nil {
		return nil, err
	}

	var buildData Build
	if err := json.NewDecoder(resp.Body).Decode(&buildData); err != nil {
		return nil, errors.Wrap(err, "decoding build response")
	}
	return &buildData, nil
}

// jsonExecutor is one executor slot in the computer API response. Pipeline
// builds occupy one-off (flyweight) executors, regular builds the fixed ones.
type jsonExecutor struct {
	CurrentExecutable *struct {
		URL             string `json:"url"`
		FullDisplayName string `json:"fullDisplayName"`
		Timestamp       int64  `json:"timestamp"`
	} `json:"currentExecutable"`
	Idle        bool `json:"idle"`
	LikelyStuck bool `json:"likelyStuck"`
	Progress    *int `json:"progress,omitempty"`
}

const executorTreeFields = "currentExecutable[url,fullDisplayName,timestamp],idle,likelyStuck,progress"

// getRunningBuilds fetches the builds currently occupying executors.
func (c *JenkinsClient) getRunningBuilds(ctx context.Context) ([]RunningBuild, error) {
	apiPath := "/computer/api/json?tree=computer[displayName," +
		"executors[" + executorTreeFields + "]," +
		"oneOffExecutors[" + executorTreeFields + "]]"
	resp, err := c.call(ctx, nil, http.MethodGet, apiPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "executor list"); err != nil {
		return nil, err
	}

	var computerResp struct {
		Computer []struct {
			DisplayName     string         `json:"displayName"`
			Executors       []jsonExecutor `json:"executors"`
			OneOffExecutors []jsonExecutor `json:"oneOffExecutors"`
		} `json:"computer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&computerResp); err != nil {
		return nil, errors.Wrap(err, "decoding executor response")
	}

	var runningBuilds []RunningBuild
	currentTime := time.Now().UnixMilli()
	collect := func(executor jsonExecutor) {
		if executor.Idle || executor.CurrentExecutable == nil {
			return
		}
		executable := executor.CurrentExecutable

		// Display names look like "jobName #buildNumber"; fall back to the
		// build URL when the pattern does not hold.
		jobName, buildNumber := parseJobNameAndBuildNumber(executable.FullDisplayName)
		if buildNumber == 0 {
			if n := parseBuildNumberFromURL(executable.URL); n > 0 {
				buildNumber = n
			}
		}

		durMs := currentTime - executable.Timestamp
		startTime := time.Unix(0, executable.Timestamp*int64(time.Millisecond))
		runningBuilds = append(runningBuilds, RunningBuild{
			JobName:     jobName,
			BuildNumber: buildNumber,
			URL:         executable.URL,
			StartTime:   TimeMS(startTime),
			Duration:    DurationMS(time.Duration(durMs) * time.Millisecond),
			Progress:    executor.Progress,
		})
	}
	for _, computer := range computerResp.Computer {
		for _, executor := range computer.Executors {
			collect(executor)
		}
		for _, executor := range computer.OneOffExecutors {
			collect(executor)
		}
	}
	return runningBuilds, nil
}

// getQueuedBuilds fetches the current build queue.
func (c *JenkinsClient) getQueuedBuilds(ctx context.Context) ([]QueuedBuild, error) {
	apiPath := "/queue/api/json?tree=items[id,task[name,url],why,inQueueSince,stuck,buildable,params]"
	resp, err := c.call(ctx, nil, http.MethodGet, apiPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "build queue"); err != nil {
		return nil, err
	}

	var queueResp struct {
		Items []struct {
			ID   int `json:"id"`
			Task struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"task"`
			Why          string `json:"why"`
			InQueueSince int64  `json:"inQueueSince"`
			Stuck        bool   `json:"stuck"`
			Buildable    bool   `json:"buildable"`
			Params       string `json:"params"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queueResp); err != nil {
		return nil, errors.Wrap(err, "decoding queue response")
	}

	queued := make([]QueuedBuild, 0, len(queueResp.Items))
	for _, it := range queueResp.Items {
		queued = append(queued, QueuedBuild{
			JobName:     it.Task.Name,
			URL:         it.Task.URL,
			QueueID:     it.ID,
			Why:         it.Why,
			QueuedSince: TimeMS(time.Unix(0, it.InQueueSince*int64(time.Millisecond))),
			Stuck:       it.Stuck,
			Buildable:   it.Buildable,
			Parameters:  strings.TrimSpace(it.Params),
		})
	}
	return queued, nil
}

// waitForBuild polls a build until it completes or the timeout elapses.
// Timing out is a regular outcome, not an error.
func (c *JenkinsClient) waitForBuild(ctx context.Context, jobName string, buildNumber int, timeout time.Duration) (*BuildWaitResult, error) {
	startTime := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	buildURL := c.requestURL(fmt.Sprintf("%s/%d", buildJobPath(jobName), buildNumber))

	ticker := time.NewTicker(c.opts.BuildPollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-timeoutCtx.Done():
			return &BuildWaitResult{
				JobName:     jobName,
				BuildNumber: buildNumber,
				Status:      "timeout",
				WaitTime:    DurationMS(time.Since(startTime)),
				TimedOut:    true,
			}, nil

		case <-ticker.C:
			build, err := c.getBuildDetails(ctx, buildURL)
			if err != nil {
				// The build may not have started yet; keep polling
				continue
			}
			if build.Building {
				continue
			}

			var status string
			switch build.Result {
			case "SUCCESS":
				status = "success"
			case "FAILURE":
				status = "failure"
			case "UNSTABLE":
				status = "unstable"
			case "ABORTED":
				status = "aborted"
			default:
				status = "unknown"
			}
			return &BuildWaitResult{
				JobName:     jobName,
				BuildNumber: buildNumber,
				Status:      status,
				Result:      build.Result,
				Duration:    build.Duration,
				WaitTime:    DurationMS(time.Since(startTime)),
				TimedOut:    false,
			}, nil
		}
	}
}

// parseJobNameAndBuildNumber extracts job name and build number from a
// Jenkins full display name like "jobName #42".
func parseJobNameAndBuildNumber(fullDisplayName string) (string, int) {
	parts := strings.Split(fullDisplayName, " #")
	if len(parts) == 2 {
		var buildNumber int
		if _, err := fmt.Sscanf(parts[1], "%d", &buildNumber); err == nil {
			return parts[0], buildNumber
		}
	}
	return fullDisplayName, 0
}

// parseBuildNumberFromURL extracts the trailing numeric segment from a
// Jenkins build URL.
func parseBuildNumberFromURL(u string) int {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	parts := strings.Split(strings.TrimSuffix(u, "/"), "/")
	if len(parts) == 0 {
		return 0
	}
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return n
}
