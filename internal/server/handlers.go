package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"ragchat/internal/parser"
	"ragchat/internal/rag"
	"ragchat/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	msgNoFiles    = "Please choose at least one file."
	msgNoQuestion = "Please enter a question."
	msgNoMessage  = "Please enter a message."
	msgChatFailed = "Request failed, please try again."
)

type askRequest struct {
	Question string `json:"question"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"status": "ok", "sessions": s.deps.Sessions.Len()})
}

func (s *Server) createSession(c *gin.Context) {
	st, err := s.deps.Sessions.Create()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		respondError(c, http.StatusInternalServerError, "Could not create a session.", nil)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"id": st.ID, "created_at": st.CreatedAt})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.deps.Sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadFiles rebuilds the session index from the uploaded files. When the
// upload yields no index the previous one is dropped.
func (s *Server) uploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		respondError(c, http.StatusBadRequest, msgNoFiles, nil)
		return
	}

	files, closeAll, err := openFiles(form.File["files"])
	defer closeAll()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open upload")
		respondError(c, http.StatusBadRequest, msgNoFiles, nil)
		return
	}

	ctx := c.Request.Context()
	err = s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		res, err := s.deps.Pipeline.Ingest(ctx, files)
		if err != nil {
			st.SetIndex(ctx, nil)
			log.Warn().Err(err).Str("session", st.ID).Msg("Ingest failed")
			data := gin.H{"result": res}
			if len(res.Unsupported) > 0 {
				data["supported"] = parser.SupportedExtensions()
			}
			respondError(c, http.StatusUnprocessableEntity, rag.UserMessage(err), data)
			return nil
		}
		st.SetIndex(ctx, res.Index)
		respondSuccess(c, http.StatusOK, res)
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

func openFiles(headers []*multipart.FileHeader) ([]rag.File, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			cl.Close()
		}
	}

	files := make([]rag.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, f)
		files = append(files, rag.File{Name: fh.Filename, Reader: f})
	}
	return files, closeAll, nil
}

func (s *Server) newChat(c *gin.Context) {
	err := s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		st.NewChat()
		respondSuccess(c, http.StatusOK, nil)
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

func (s *Server) messages(c *gin.Context) {
	err := s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		respondSuccess(c, http.StatusOK, st.History())
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

// ask answers a question against the session index and streams the answer
// as server-sent events: token events, then done with the full answer, or a
// single error event.
func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}

	ctx := c.Request.Context()
	err := s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		question := strings.TrimSpace(req.Question)
		if question == "" {
			question = st.TakeTranscript()
		}
		if question == "" {
			respondError(c, http.StatusBadRequest, msgNoQuestion, nil)
			return nil
		}

		answer, err := s.deps.Pipeline.Ask(ctx, st.Index(), st.History(), question)
		startEventStream(c)
		if err != nil {
			log.Error().Err(err).Str("session", st.ID).Msg("No answer")
			sendEvent(c, "error", gin.H{"message": rag.UserMessage(err)})
			return nil
		}
		st.AddUserTurn(question)
		st.AddAssistantTurn(answer.Text)

		err = s.deps.Streamer.Stream(ctx, answer.Text, func(token string) error {
			sendEvent(c, "token", token)
			return nil
		})
		if err != nil {
			log.Warn().Err(err).Str("session", st.ID).Msg("Streaming stopped")
			return nil
		}
		sendEvent(c, "done", answer)
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

func startEventStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
}

func sendEvent(c *gin.Context, name string, data any) {
	c.SSEvent(name, data)
	c.Writer.Flush()
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		respondError(c, http.StatusBadRequest, msgNoMessage, nil)
		return
	}

	ctx := c.Request.Context()
	err := s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		reply, err := s.deps.Chatbot.Reply(ctx, st.History(), req.Message)
		if err != nil {
			log.Error().Err(err).Str("session", st.ID).Msg("Chat failed")
			respondError(c, http.StatusBadGateway, msgChatFailed, nil)
			return nil
		}
		st.AddUserTurn(req.Message)
		st.AddAssistantTurn(reply)
		respondSuccess(c, http.StatusOK, gin.H{"reply": reply})
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}
