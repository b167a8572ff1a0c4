// Package api serves conversions over HTTP. Uploaded subtitles are converted
// in memory and answered with the song file; overlap questions are settled
// without asking, keeping the earliest lines and the largest styles.
package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"karaluxer/internal/ass"
	"karaluxer/internal/config"
	"karaluxer/internal/job"
	"karaluxer/internal/overlap"
	"karaluxer/internal/paths"
)

// MaxUploadBytes bounds the size of an uploaded subtitle file.
const MaxUploadBytes = 8 << 20

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Server holds the settings shared by every request.
type Server struct {
	Config config.Config
	Logger Logger
}

// New returns a server converting with cfg.
func New(cfg config.Config, logger Logger) *Server {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Server{Config: cfg, Logger: logger}
}

// Handler builds the gin router.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logRequests())
	r.Use(corsMiddleware())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/policies", s.listPolicies)
		v1.POST("/convert", s.handleConvert)
	}
	return r
}

// Run listens on port until the server fails.
func (s *Server) Run(port int) error {
	return s.Handler().Run(fmt.Sprintf(":%d", port))
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Printf("api: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "karaluxer",
	})
}

func (s *Server) listPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"policies": overlap.Policies(),
		"default":  s.Config.Conversion.OverlapPolicy,
	})
}

// convertQuery holds the query parameters of a convert request.
type convertQuery struct {
	Policy        overlap.Policy
	SongBPM       float64
	ForceDialogue bool
	Meta          job.Metadata
}

func (s *Server) parseQuery(c *gin.Context) (convertQuery, error) {
	q := convertQuery{
		SongBPM:       s.Config.Conversion.SongBPM,
		ForceDialogue: s.Config.Conversion.ForceDialogue,
		Meta: job.Metadata{
			Title:    c.Query("title"),
			Artist:   c.Query("artist"),
			Language: c.Query("language"),
			Creator:  c.Query("creator"),
		},
	}

	policy, err := overlap.ParsePolicy(c.DefaultQuery("policy", s.Config.Conversion.OverlapPolicy))
	if err != nil {
		return q, &job.ConfigError{Field: "policy", Err: err}
	}
	q.Policy = policy

	if raw := c.Query("song_bpm"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, &job.ConfigError{Field: "song_bpm", Message: fmt.Sprintf("%q is not a number", raw)}
		}
		q.SongBPM = v
	}
	if raw := c.Query("force_dialogue"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return q, &job.ConfigError{Field: "force_dialogue", Message: fmt.Sprintf("%q is not a boolean", raw)}
		}
		q.ForceDialogue = v
	}
	if raw := c.Query("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return q, &job.ConfigError{Field: "year", Message: fmt.Sprintf("%q is not a year", raw)}
		}
		q.Meta.Year = v
	}
	return q, nil
}

func (s *Server) handleConvert(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	query, err := s.parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".ass") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a .ass subtitle file"})
		return
	}

	script, err := ass.Parse(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meta := query.Meta
	if meta.Title == "" && script.Title() == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	conv := s.Config.Conversion
	result, err := job.Convert(c.Request.Context(), script, job.ConvertOptions{
		BeatsPerSecond: conv.BeatsPerSecond,
		Pitch:          conv.PitchValue(),
		ShrinkBeats:    conv.ShrinkValue(),
		SongBPM:        query.SongBPM,
		Policy:         query.Policy,
		ForceDialogue:  query.ForceDialogue,
		Decider:        overlap.KeepEarliest{},
		Logger:         s.Logger,
		Metadata:       meta,
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		if job.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	title, _ := result.Song.Get("TITLE")
	artist, _ := result.Song.Get("ARTIST")
	filename := paths.SongBaseName(artist, title) + ".txt"

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("X-Karaluxer-Lines", strconv.Itoa(result.Lines))
	c.Header("X-Karaluxer-Kept", strconv.Itoa(result.Kept))
	c.Header("X-Karaluxer-Warnings", strconv.Itoa(len(result.Warnings)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(result.Song.String()))
}
