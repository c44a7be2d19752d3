package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	serverName    = "jenkins-mcp-proxy"
	serverVersion = "0.2.0"

	mcpPath = "/mcp"
)

// JSON-RPC error code for invalid params, used for connection parameter
// failures answered before the MCP layer runs.
const rpcCodeInvalidParams = -32602

// proxyServer owns the process-wide pieces shared by all requests: the
// configuration and the two outbound HTTP clients. It holds no credentials
// and no per-request state.
type proxyServer struct {
	cfg        Config
	client     *http.Client
	logsClient *http.Client
}

func newProxyServer(cfg Config) *proxyServer {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	logsTimeout := cfg.LogsTimeout
	if logsTimeout <= 0 {
		logsTimeout = defaultLogsTimeout
	}
	return &proxyServer{
		cfg:        cfg,
		client:     &http.Client{Timeout: requestTimeout},
		logsClient: &http.Client{Timeout: logsTimeout},
	}
}

func (s *proxyServer) clientOptions() ClientOptions {
	return ClientOptions{
		Client:        s.client,
		LogsClient:    s.logsClient,
		RetryAttempts: s.cfg.RetryAttempts,
		QueueWait:     s.cfg.QueueWaitTimeout,
	}
}

// handler assembles the HTTP surface: the MCP endpoint behind the connection
// middleware, plus health and metrics.
func (s *proxyServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(mcpPath, s.requireConnection(s.streamableHandler()))
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return requestLogger(mux)
}

// streamableHandler serves MCP over streamable HTTP. Sessions are stateless:
// every request builds a fresh server from the connection resolved by the
// middleware, so credentials never outlive their request.
func (s *proxyServer) streamableHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		conn, ok := connectionFromContext(r.Context())
		if !ok {
			// Unreachable behind requireConnection; the SDK answers 400.
			return nil
		}
		return s.newToolServer(conn)
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

// newToolServer builds an MCP server whose tools close over a client bound to
// the given connection.
func (s *proxyServer) newToolServer(conn ConnectionConfig) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	client := newJenkinsClient(conn, s.clientOptions())
	for _, register := range toolRegistrars {
		register(server, client)
	}
	return server
}

// requireConnection resolves the Jenkins connection parameters from the query
// string before the MCP layer runs. On failure the request is answered here
// and Jenkins is never contacted.
func (s *proxyServer) requireConnection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := resolveConnection(r.URL.Query())
		if err != nil {
			var confErr *ConfigurationError
			if errors.As(err, &confErr) {
				metricConfigErrors.WithLabelValues(confErr.Param).Inc()
			}
			log.WithError(err).Warn("Rejected request with invalid connection parameters")
			writeRPCError(w, http.StatusBadRequest, rpcCodeInvalidParams, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithConnection(r.Context(), conn)))
	})
}

// requestLogger emits one structured line per handled request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Info("Handled request")
	})
}

// statusRecorder captures the response status for the request log. Flush is
// forwarded so the streamable transport can keep using SSE.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcErrorResponse struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Error   rpcErrorBody `json:"error"`
}

// writeRPCError answers a request with a JSON-RPC shaped error body.
func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcErrorResponse{
		JSONRPC: "2.0",
		Error:   rpcErrorBody{Code: code, Message: message},
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": serverName,
		"version": serverVersion,
	})
}
