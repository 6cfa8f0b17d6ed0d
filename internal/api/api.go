// Package api serves the admin HTTP API over the queue store.
package api

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"redis-queue-executor/internal/queue"
)

// Options configures the router.
type Options struct {
	Store  queue.Store
	APIKey string

	// Chain, DoingQueue and the sinks describe the executor layout shown
	// by GET /overview.
	Chain         queue.Chain
	DoingQueue    string
	SuccessQueues []string
	ErrorQueues   []string

	Logger *slog.Logger
}

type server struct {
	opts   Options
	logger *slog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{opts: opts, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", s.requireKey())
	authed.POST("/queues/:name/items", s.enqueue)
	authed.GET("/queues/:name", s.inspect)
	authed.DELETE("/queues/:name", s.purge)
	authed.GET("/overview", s.overview)

	return r
}

func (s *server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

func (s *server) requireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.APIKey != "" && c.GetHeader("X-API-Key") != s.opts.APIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

func (s *server) healthz(c *gin.Context) {
	if err := s.opts.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// enqueue accepts {"items": [...]} or a CSV body whose first column is the item.
func (s *server) enqueue(c *gin.Context) {
	name := c.Param("name")

	var items []string
	var err error
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		items, err = readCSVItems(c.Request.Body)
	} else {
		var req struct {
			Items []string `json:"items" binding:"required,min=1"`
		}
		err = c.ShouldBindJSON(&req)
		items = req.Items
	}
	if err == nil && len(items) == 0 {
		err = errors.New("no items")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := s.opts.Store.PushBack(c.Request.Context(), name, items...)
	if err != nil {
		s.logger.Error("enqueue failed", "queue", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("items enqueued", "queue", name, "count", len(items))
	c.JSON(http.StatusAccepted, gin.H{"queue": name, "pushed": len(items), "length": n})
}

// readCSVItems takes the first field of every record, skipping blanks.
func readCSVItems(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var items []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		if item := strings.TrimSpace(rec[0]); item != "" {
			items = append(items, item)
		}
	}
}

func (s *server) inspect(c *gin.Context) {
	name := c.Param("name")
	start, err1 := strconv.ParseInt(c.DefaultQuery("start", "0"), 10, 64)
	stop, err2 := strconv.ParseInt(c.DefaultQuery("stop", "99"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and stop must be integers"})
		return
	}

	ctx := c.Request.Context()
	n, err := s.opts.Store.Len(ctx, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items, err := s.opts.Store.Range(ctx, name, start, stop)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"queue": name, "length": n, "items": items})
}

func (s *server) purge(c *gin.Context) {
	name := c.Param("name")
	if err := s.opts.Store.Delete(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Warn("queue purged", "queue", name)
	c.JSON(http.StatusOK, gin.H{"queue": name, "deleted": true})
}

type queueLength struct {
	Queue  string `json:"queue"`
	Role   string `json:"role"`
	Length int64  `json:"length"`
}

func (s *server) overview(c *gin.Context) {
	var rows []queueLength
	for i, q := range s.opts.Chain.Queues() {
		rows = append(rows, queueLength{Queue: q, Role: "attempt:" + strconv.Itoa(i+1)})
	}
	if s.opts.DoingQueue != "" {
		rows = append(rows, queueLength{Queue: s.opts.DoingQueue, Role: "doing"})
	}
	for _, q := range s.opts.SuccessQueues {
		rows = append(rows, queueLength{Queue: q, Role: "success"})
	}
	for _, q := range s.opts.ErrorQueues {
		rows = append(rows, queueLength{Queue: q, Role: "error"})
	}

	for i := range rows {
		n, err := s.opts.Store.Len(c.Request.Context(), rows[i].Queue)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		rows[i].Length = n
	}
	c.JSON(http.StatusOK, gin.H{"queues": rows})
}
