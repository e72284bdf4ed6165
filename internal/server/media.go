package server

import (
	"errors"
	"io"
	"net/http"

	"ragchat/internal/caption"
	"ragchat/internal/session"
	"ragchat/internal/speech"
	"ragchat/internal/summarizer"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type summarizeRequest struct {
	Text string `json:"text"`
}

func (s *Server) uploadAudio(c *gin.Context) {
	if s.deps.Transcriber == nil {
		respondError(c, http.StatusServiceUnavailable, msgUnavailable, nil)
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Please record or upload an audio clip.", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	err = s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		tr, err := s.deps.Transcriber.Transcribe(ctx, fh.Filename, f)
		if err != nil {
			respondError(c, statusForSpeech(err), speech.UserMessage(err), nil)
			return nil
		}
		st.SetTranscript(tr.Text)
		st.SetAudioPath(tr.AudioPath)
		respondSuccess(c, http.StatusOK, gin.H{"text": tr.Text})
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

func (s *Server) audio(c *gin.Context) {
	err := s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		path := st.AudioPath()
		if path == "" {
			respondError(c, http.StatusNotFound, "No audio has been recorded yet.", nil)
			return nil
		}
		c.File(path)
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

// speech reads the last assistant answer of the session out loud.
func (s *Server) speech(c *gin.Context) {
	if s.deps.Speaker == nil {
		respondError(c, http.StatusServiceUnavailable, msgUnavailable, nil)
		return
	}

	ctx := c.Request.Context()
	err := s.deps.Sessions.Do(c.Param("id"), func(st *session.State) error {
		text, _ := st.LastAnswer()
		audio, err := s.deps.Speaker.Speak(ctx, text)
		if err != nil {
			respondError(c, statusForSpeech(err), speech.UserMessage(err), nil)
			return nil
		}
		c.Data(http.StatusOK, "audio/mpeg", audio)
		return nil
	})
	if err != nil {
		respondSessionError(c, err)
	}
}

func statusForSpeech(err error) int {
	switch {
	case errors.Is(err, speech.ErrNothingToSpeak):
		return http.StatusNotFound
	case errors.Is(err, speech.ErrUnintelligible):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// summarize accepts either a multipart file, a multipart text field or a
// JSON body with text.
func (s *Server) summarize(c *gin.Context) {
	if s.deps.Summarizer == nil {
		respondError(c, http.StatusServiceUnavailable, msgUnavailable, nil)
		return
	}

	ctx := c.Request.Context()
	var (
		summary string
		err     error
	)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if fh, ferr := c.FormFile("file"); ferr == nil {
			f, oerr := fh.Open()
			if oerr != nil {
				respondError(c, http.StatusBadRequest, msgBadRequest, nil)
				return
			}
			defer f.Close()
			summary, err = s.deps.Summarizer.SummarizeFile(ctx, fh.Filename, f)
		} else {
			summary, err = s.deps.Summarizer.Summarize(ctx, c.PostForm("text"))
		}
	} else {
		var req summarizeRequest
		if berr := c.ShouldBindJSON(&req); berr != nil && !errors.Is(berr, io.EOF) {
			respondError(c, http.StatusBadRequest, msgBadRequest, nil)
			return
		}
		summary, err = s.deps.Summarizer.Summarize(ctx, req.Text)
	}

	if err != nil {
		log.Warn().Err(err).Msg("Summarize failed")
		status := http.StatusBadGateway
		if errors.Is(err, summarizer.ErrNoText) || errors.Is(err, summarizer.ErrUnsupported) {
			status = http.StatusUnprocessableEntity
		}
		respondError(c, status, summarizer.UserMessage(err), nil)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) caption(c *gin.Context) {
	if s.deps.Captioner == nil {
		respondError(c, http.StatusServiceUnavailable, msgUnavailable, nil)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Please upload an image.", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}

	text, err := s.deps.Captioner.Caption(c.Request.Context(), fh.Filename, data)
	if err != nil {
		log.Warn().Err(err).Str("image", fh.Filename).Msg("Caption failed")
		status, data := http.StatusBadGateway, any(nil)
		if errors.Is(err, caption.ErrUnsupportedImage) {
			status = http.StatusUnsupportedMediaType
			data = gin.H{"supported": caption.SupportedExtensions()}
		}
		respondError(c, status, caption.UserMessage(err), data)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"caption": text})
}
