package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"ragchat/internal/config"
	"ragchat/internal/models"
	"ragchat/internal/rag"
	"ragchat/internal/session"
	"ragchat/internal/speech"
	"ragchat/internal/stream"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

type Pipeline interface {
	Ingest(ctx context.Context, files []rag.File) (*rag.IngestResult, error)
	Ask(ctx context.Context, index models.VectorIndex, history []models.Turn, question string) (*rag.Answer, error)
}

type Chatbot interface {
	Reply(ctx context.Context, history []models.Turn, prompt string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, name string, r io.Reader) (*speech.Transcript, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	SummarizeFile(ctx context.Context, name string, r io.Reader) (string, error)
}

type Captioner interface {
	Caption(ctx context.Context, name string, data []byte) (string, error)
}

// Deps are the services behind the HTTP surface. Transcriber, Speaker,
// Summarizer and Captioner are optional; their routes answer 503 when unset.
type Deps struct {
	Config      *config.ServerConfig
	Sessions    *session.Manager
	Pipeline    Pipeline
	Chatbot     Chatbot
	Streamer    *stream.Streamer
	Transcriber Transcriber
	Speaker     Speaker
	Summarizer  Summarizer
	Captioner   Captioner
}

type Server struct {
	deps   Deps
	engine *gin.Engine
}

func New(deps Deps) *Server {
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager()
	}
	if deps.Streamer == nil {
		deps.Streamer = stream.New(stream.DefaultDelay)
	}

	s := &Server{deps: deps, engine: gin.New()}
	s.engine.MaxMultipartMemory = deps.Config.MaxUploadMB << 20
	s.engine.Use(gin.Recovery(), requestLogger(), corsMiddleware(deps.Config.CORSOrigins))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/api")
	api.POST("/summarize", s.summarize)
	api.POST("/caption", s.caption)

	sessions := api.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.DELETE("/:id", s.deleteSession)
	sessions.POST("/:id/files", s.uploadFiles)
	sessions.POST("/:id/new-chat", s.newChat)
	sessions.GET("/:id/messages", s.messages)
	sessions.POST("/:id/ask", s.ask)
	sessions.POST("/:id/chat", s.chat)
	sessions.POST("/:id/audio", s.uploadAudio)
	sessions.GET("/:id/audio", s.audio)
	sessions.GET("/:id/speech", s.speech)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down and closes every session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.deps.Config.Addr,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	err := srv.ListenAndServe()
	s.deps.Sessions.CloseAll(context.Background())
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
