package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ragchat/internal/caption"
	"ragchat/internal/config"
	"ragchat/internal/helper"
	"ragchat/internal/llmservice"
	"ragchat/internal/parser"
	"ragchat/internal/rag"
	"ragchat/internal/server"
	"ragchat/internal/session"
	"ragchat/internal/speech"
	"ragchat/internal/stream"
	"ragchat/internal/summarizer"
	"ragchat/internal/tui"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	mode := flag.String("mode", "serve", "One of serve, tui, ask, chat, summarize, caption, transcribe, speak")
	configPath := flag.String("config", configFilePath, "Path to the config file")
	files := flag.String("file", "", "Comma separated document paths")
	query := flag.String("query", "", "Question or chat message")
	image := flag.String("image", "", "Path to the image to caption")
	audio := flag.String("audio", "", "Path to the audio clip to transcribe")
	text := flag.String("text", "", "Text to summarize or speak")
	out := flag.String("out", "answer.mp3", "Output path of the speak mode")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setLogLevel(cfg.LogLevel)
	log.Debug().Str("llm", cfg.LLM.Provider).Str("embedder", cfg.EmbedLLM.Provider).Str("backend", cfg.RAG.Backend).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		err = serve(ctx, cfg)
	case "tui":
		err = runTUI(ctx, cfg)
	case "ask":
		err = askOnce(ctx, cfg, splitPaths(*files), *query)
	case "chat":
		err = chatOnce(ctx, cfg, *query)
	case "summarize":
		err = summarize(ctx, cfg, *files, *text)
	case "caption":
		err = captionImage(ctx, cfg, *image)
	case "transcribe":
		err = transcribe(ctx, cfg, *audio)
	case "speak":
		err = speak(ctx, cfg, *text, *out)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("Failed")
	}
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using debug")
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if lvl == zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

func splitPaths(s string) []string {
	var paths []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := server.Deps{
		Config:   &cfg.Server,
		Sessions: session.NewManager(),
		Pipeline: a.pipeline,
		Chatbot:  a.chatbot,
		Streamer: stream.New(cfg.RAG.StreamDelay),
	}
	if sum, err := newSummarizer(a.llm, cfg); err != nil {
		log.Warn().Err(err).Msg("Summarize disabled")
	} else {
		deps.Summarizer = sum
	}
	if tr, err := speech.NewTranscriber(&cfg.Speech); err != nil {
		log.Warn().Err(err).Msg("Audio input disabled")
	} else {
		deps.Transcriber = tr
	}
	if sp, err := speech.NewSpeaker(&cfg.Speech); err != nil {
		log.Warn().Err(err).Msg("Audio output disabled")
	} else {
		deps.Speaker = sp
	}
	if cp, err := caption.NewCaptioner(&cfg.Vision); err != nil {
		log.Warn().Err(err).Msg("Image captioning disabled")
	} else {
		deps.Captioner = cp
	}

	return server.New(deps).Run(ctx)
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	st := session.New(id)
	defer st.Close(context.Background())
	return tui.Run(a.pipeline, st, cfg.RAG.StreamDelay)
}

func askOnce(ctx context.Context, cfg *config.Config, paths []string, query string) error {
	if len(paths) == 0 || query == "" {
		return fmt.Errorf("ask needs -file and -query")
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	files := make([]rag.File, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		files = append(files, rag.File{Name: filepath.Base(path), Reader: f})
	}

	res, err := a.pipeline.Ingest(ctx, files)
	if err != nil {
		fmt.Println(rag.UserMessage(err))
		return err
	}
	defer res.Index.Close(context.Background())
	helper.PrettyPrint(res)

	answer, err := a.pipeline.Ask(ctx, res.Index, nil, query)
	if err != nil {
		fmt.Println(rag.UserMessage(err))
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, m := range answer.Sources {
		fmt.Printf("[%s #%d %.3f] %s\n", m.Chunk.Source, m.Chunk.Ordinal, m.Score, m.Chunk.Content)
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for token := range stream.New(cfg.RAG.StreamDelay).Seq(ctx, answer.Text) {
		fmt.Print(token)
	}
	fmt.Printf("\n\n")
	return ctx.Err()
}

func chatOnce(ctx context.Context, cfg *config.Config, query string) error {
	if query == "" {
		return fmt.Errorf("chat needs -query")
	}
	llm, err := llmservice.NewModel(ctx, &cfg.LLM)
	if err != nil {
		return err
	}
	reply, err := llmservice.NewChatbot(llm, cfg.LLM.Temperature).Reply(ctx, nil, query)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", reply)
	return nil
}

func summarize(ctx context.Context, cfg *config.Config, path, text string) error {
	llm, err := llmservice.NewModel(ctx, &cfg.LLM)
	if err != nil {
		return err
	}
	sum, err := newSummarizer(llm, cfg)
	if err != nil {
		return err
	}

	if path != "" {
		ex, err := parser.ReadFile(path)
		if err != nil {
			return err
		}
		if ex.Unsupported {
			fmt.Println(ex.Content())
			return fmt.Errorf("%w: %s", summarizer.ErrUnsupported, ex.Name)
		}
		text = ex.Text
	}
	summary, err := sum.Summarize(ctx, text)
	if err != nil {
		fmt.Println(summarizer.UserMessage(err))
		return err
	}
	fmt.Printf("%s\n", summary)
	return nil
}

func captionImage(ctx context.Context, cfg *config.Config, path string) error {
	if path == "" {
		return fmt.Errorf("caption needs -image")
	}
	cp, err := caption.NewCaptioner(&cfg.Vision)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, err := cp.Caption(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", text)
	return nil
}

func transcribe(ctx context.Context, cfg *config.Config, path string) error {
	if path == "" {
		return fmt.Errorf("transcribe needs -audio")
	}
	tr, err := speech.NewTranscriber(&cfg.Speech)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := tr.Transcribe(ctx, filepath.Base(path), f)
	if err != nil {
		fmt.Println(speech.UserMessage(err))
		return err
	}
	defer helper.RemoveFile(t.AudioPath)
	fmt.Printf("%s\n", t.Text)
	return nil
}

func speak(ctx context.Context, cfg *config.Config, text, out string) error {
	sp, err := speech.NewSpeaker(&cfg.Speech)
	if err != nil {
		return err
	}
	if err := sp.SpeakToFile(ctx, text, out); err != nil {
		fmt.Println(speech.UserMessage(err))
		return err
	}
	log.Info().Str("file", out).Msg("Wrote speech")
	return nil
}
