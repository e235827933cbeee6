// Package api implements the HTTP surface of the backend.
//
// Routes:
//
//	GET  /health         → liveness probe
//	POST /sync           → fetch + reconcile one source
//	GET  /jobs           → unified job feed
//	POST /llm/test       → raw prompt passthrough (diagnostics)
//	POST /resume/upload  → resume file → structured skills
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/ingest"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/llm"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/resume"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/source"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/storage"
)

const (
	// maxQueryLimit bounds GET /jobs when a limit is supplied; omitting the
	// parameter returns the whole feed.
	maxQueryLimit = 50

	defaultWindowDays = 7

	// jobsCacheTTL is how long a cached feed response stays valid. The cache
	// is also invalidated after every successful sync.
	jobsCacheTTL = 60 * time.Second

	jobsCachePrefix  = "jobs:list:"
	syncEventChannel = "EVENT_JOBS_SYNCED"

	maxUploadBytes = 150 << 20
)

// Handler holds the shared dependencies for all routes. rdb, llmClient and
// resumes may be nil; the affected routes degrade gracefully.
type Handler struct {
	registry   *source.Registry
	reconciler *ingest.Reconciler
	store      storage.Store
	rdb        *redis.Client
	llmClient  *llm.Client
	resumes    *resume.Service
	logger     *slog.Logger
	version    string
}

// New returns a configured Handler.
func New(
	registry *source.Registry,
	reconciler *ingest.Reconciler,
	store storage.Store,
	rdb *redis.Client,
	llmClient *llm.Client,
	resumes *resume.Service,
	logger *slog.Logger,
	version string,
) *Handler {
	return &Handler{
		registry:   registry,
		reconciler: reconciler,
		store:      store,
		rdb:        rdb,
		llmClient:  llmClient,
		resumes:    resumes,
		logger:     logger.With("component", "api"),
		version:    version,
	}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/health", h.health)
	r.POST("/sync", h.sync)
	r.GET("/jobs", h.listJobs)
	r.POST("/llm/test", h.llmTest)
	r.POST("/resume/upload", h.uploadResume)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "job-retrieval-backend",
		"version": h.version,
	})
}

// ─── Sync ────────────────────────────────────────────────────────────────────

type syncRequest struct {
	Source               string `json:"source" binding:"required"`
	Limit                int    `json:"limit"`
	InactivityWindowDays int    `json:"inactivity_window_days"`
}

type syncResponse struct {
	Source      string `json:"source"`
	Fetched     int    `json:"fetched"`
	Upserted    int    `json:"upserted"`
	Deactivated int    `json:"deactivated"`
}

// sync fetches one source and reconciles the batch. Malformed requests are
// client errors; fetch and persistence failures surface as a generic
// per-source failure with internals only logged.
func (h *Handler) sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	src, ok := h.registry.Get(req.Source)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown source %q", req.Source)})
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must not be negative"})
		return
	}

	limit := req.Limit
	if limit == 0 || limit > src.MaxLimit() {
		limit = src.MaxLimit()
	}
	window := req.InactivityWindowDays
	if window == 0 {
		window = defaultWindowDays
	}
	if window < ingest.MinWindowDays || window > ingest.MaxWindowDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
			"inactivity_window_days must be in [%d, %d]", ingest.MinWindowDays, ingest.MaxWindowDays)})
		return
	}

	records, err := src.Fetch(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("fetch failed", "source", src.Name(), "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("sync failed for source %q", src.Name())})
		return
	}

	res, err := h.reconciler.Sync(c.Request.Context(), src.Name(), records, window)
	if err != nil {
		h.logger.Error("reconcile failed", "source", src.Name(), "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("sync failed for source %q", src.Name())})
		return
	}

	h.afterSync(c, src.Name(), res)

	c.JSON(http.StatusOK, syncResponse{
		Source:      src.Name(),
		Fetched:     res.Fetched,
		Upserted:    res.Upserted,
		Deactivated: res.Deactivated,
	})
}

// afterSync invalidates the feed cache and announces the sync. Both are
// best-effort: a cache or broker hiccup never fails a completed sync.
func (h *Handler) afterSync(c *gin.Context, sourceName string, res model.SyncResult) {
	if h.rdb == nil {
		return
	}
	ctx := c.Request.Context()

	iter := h.rdb.Scan(ctx, 0, jobsCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := h.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			h.logger.Warn("feed cache invalidation failed", "key", iter.Val(), "err", err)
		}
	}
	if err := iter.Err(); err != nil {
		h.logger.Warn("feed cache scan failed", "err", err)
	}

	event := fmt.Sprintf(`{"type":%q,"source":%q,"upserted":%d,"deactivated":%d}`,
		syncEventChannel, sourceName, res.Upserted, res.Deactivated)
	if err := h.rdb.Publish(ctx, syncEventChannel, event).Err(); err != nil {
		h.logger.Warn("publish sync event failed", "err", err)
	}
}

// ─── Jobs feed ───────────────────────────────────────────────────────────────

// listJobs serves the unified feed. Without a limit the whole feed is
// returned; with one, the limit is clamped to [1, 50].
func (h *Handler) listJobs(c *gin.Context) {
	limit := 0 // no cap
	if q := c.Query("limit"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = v
		if limit < 1 {
			limit = 1
		} else if limit > maxQueryLimit {
			limit = maxQueryLimit
		}
	}

	cacheKey := jobsCachePrefix + strconv.Itoa(limit)
	if h.rdb != nil {
		if cached, err := h.rdb.Get(c.Request.Context(), cacheKey).Bytes(); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			return
		}
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list jobs failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	body := gin.H{"count": len(jobs), "jobs": jobs}
	if h.rdb != nil {
		if raw, err := json.Marshal(body); err == nil {
			if err := h.rdb.Set(c.Request.Context(), cacheKey, raw, jobsCacheTTL).Err(); err != nil {
				h.logger.Warn("feed cache write failed", "err", err)
			}
		}
	}
	c.JSON(http.StatusOK, body)
}

// ─── LLM diagnostics ─────────────────────────────────────────────────────────

type llmTestRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) llmTest(c *gin.Context) {
	if h.llmClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "llm is not configured"})
		return
	}

	var req llmTestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		req.Prompt = "say hello"
	}

	result, err := h.llmClient.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("llm test failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "response": result})
}

// ─── Resume upload ───────────────────────────────────────────────────────────

func (h *Handler) uploadResume(c *gin.Context) {
	if h.resumes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "resume analysis is not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no file part in the request"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no file selected"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "could not read uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "could not read uploaded file"})
		return
	}

	report, err := h.resumes.ExtractSkills(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		var respErr *llm.ResponseError
		switch {
		case errors.Is(err, resume.ErrUnsupportedType), errors.Is(err, resume.ErrLooksScanned):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		case errors.As(err, &respErr):
			h.logger.Error("resume analysis failed", "err", err, "raw_output", respErr.Raw)
			c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": respErr.Msg})
		default:
			h.logger.Error("resume analysis failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "resume analysis failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "response": report})
}
