// ABOUTME: Session drives one interactive chat about a single YouTube video
// ABOUTME: Fetches metadata and transcript, optionally ingests chunks, then loops over questions
package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harper/vidchat/internal/config"
	"github.com/harper/vidchat/internal/logger"
	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/youtube"
)

// ErrNoTranscript is returned when the session aborts because no transcript is available
var ErrNoTranscript = errors.New("no transcript available")

// descriptionPreview is how many characters of the description are printed
const descriptionPreview = 200

// State is a step of the session lifecycle
type State int

const (
	StateInit State = iota
	StateMetadataFetched
	StateTranscriptReady
	StateTranscriptEmpty
	StateEmbedded
	StateChatting
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateMetadataFetched:
		return "metadata_fetched"
	case StateTranscriptReady:
		return "transcript_ready"
	case StateTranscriptEmpty:
		return "transcript_empty"
	case StateEmbedded:
		return "embedded"
	case StateChatting:
		return "chatting"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionConfig selects the mode and behavior of a session
type SessionConfig struct {
	// URL is the video to chat about; prompted for when empty
	URL  string
	Mode string
	// OnMissingTranscript is config.PolicyDegrade or config.PolicyAbort.
	// Empty picks degrade for basic mode and abort for retrieval mode.
	OnMissingTranscript string
	ChunkWords          int
	TopK                int
	DropIndexOnExit     bool
	Ingest              IngesterConfig
}

// SessionDeps are the services a session talks to. Embedder and Index are
// only needed in retrieval mode.
type SessionDeps struct {
	Fetcher  TranscriptFetcher
	Embedder Embedder
	Answerer Answerer
	Index    storage.VectorIndex
	Logger   *slog.Logger
}

// lineResult is one line read from the session input
type lineResult struct {
	line string
	err  error
}

// Session holds the state of one chat
type Session struct {
	id      string
	cfg     SessionConfig
	deps    SessionDeps
	chunker *ChunkEngine
	qa      *QA
	in      *bufio.Reader
	out     io.Writer
	label   lipgloss.Style
	logger  *slog.Logger

	// lines is fed by a single reader goroutine so prompts can give up on ctx
	lines chan lineResult
	done  chan struct{}
	once  sync.Once

	state      State
	videoID    string
	transcript string
}

// NewSession creates a session reading questions from in and writing to out
func NewSession(cfg SessionConfig, deps SessionDeps, in io.Reader, out io.Writer) *Session {
	if cfg.Mode == "" {
		cfg.Mode = config.ModeRetrieval
	}
	if cfg.OnMissingTranscript == "" {
		cfg.OnMissingTranscript = config.PolicyAbort
		if cfg.Mode == config.ModeBasic {
			cfg.OnMissingTranscript = config.PolicyDegrade
		}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if cfg.Ingest.Logger == nil {
		cfg.Ingest.Logger = deps.Logger
	}

	id := uuid.New().String()
	renderer := lipgloss.NewRenderer(out)

	return &Session{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		chunker: NewChunkEngine(),
		qa:      NewQA(deps.Embedder, deps.Answerer, deps.Index, cfg.TopK),
		in:      bufio.NewReader(in),
		out:     out,
		label:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		logger:  deps.Logger.With("session", id),
		state:   StateInit,
		lines:   make(chan lineResult),
		done:    make(chan struct{}),
	}
}

// ID returns the session's unique id
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// Run executes the session until the user exits, input ends, or a fatal error occurs
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	url := strings.TrimSpace(s.cfg.URL)
	if url == "" {
		line, err := s.prompt(ctx, "Enter YouTube video URL: ")
		if err != nil {
			return fmt.Errorf("reading video URL: %w", err)
		}
		url = strings.TrimSpace(line)
	}
	if url == "" {
		return fmt.Errorf("no video URL provided")
	}
	s.videoID = youtube.ExtractVideoID(url)
	s.logger.Info("starting session", "video_id", s.videoID, "mode", s.cfg.Mode)

	s.showMetadata(ctx)
	s.transition(StateMetadataFetched)

	if err := s.loadTranscript(ctx); err != nil {
		return err
	}

	if s.state == StateTranscriptReady && s.cfg.Mode == config.ModeRetrieval {
		if err := s.embed(ctx); err != nil {
			return err
		}
	}

	return s.chat(ctx)
}

func (s *Session) transition(next State) {
	s.logger.Debug("session state", "from", s.state, "to", next)
	s.state = next
}

func (s *Session) showMetadata(ctx context.Context) {
	meta, err := s.deps.Fetcher.FetchMetadata(ctx, s.videoID)
	if err != nil {
		s.logger.Debug("metadata unavailable", "error", err)
		s.println("Video metadata not available:", err)
		return
	}

	desc := []rune(meta.Description)
	if len(desc) > descriptionPreview {
		desc = desc[:descriptionPreview]
	}
	s.println("Title:", meta.Title)
	s.println("Description:", string(desc), "...")
	s.println("Views:", meta.ViewCount)
}

func (s *Session) loadTranscript(ctx context.Context) error {
	transcript, err := s.deps.Fetcher.FetchTranscript(ctx, s.videoID)
	if err == nil && strings.TrimSpace(transcript.Text()) == "" {
		err = youtube.ErrNoTranscriptFound
	}
	if err == nil {
		s.transcript = transcript.Text()
		s.logger.Info("transcript fetched", "language", transcript.Language, "segments", len(transcript.Segments))
		s.println("\nTranscript successfully fetched!")
		s.transition(StateTranscriptReady)
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Warn("transcript unavailable", "error", err, "policy", s.cfg.OnMissingTranscript)

	if s.cfg.OnMissingTranscript == config.PolicyAbort {
		if youtube.IsNoTranscript(err) {
			s.println("Transcript not available")
		} else {
			s.println("Error fetching transcript:", err)
		}
		s.transition(StateExited)
		return fmt.Errorf("%w: %w", ErrNoTranscript, err)
	}

	if youtube.IsNoTranscript(err) {
		s.println("\nTranscript: No data available")
	} else {
		s.println("\nError fetching transcript:", err)
	}
	s.transition(StateTranscriptEmpty)
	return nil
}

func (s *Session) embed(ctx context.Context) error {
	if s.deps.Embedder == nil || s.deps.Index == nil {
		return fmt.Errorf("retrieval mode needs an embedder and a vector index")
	}

	chunks := s.chunker.ChunkTranscript(s.videoID, s.transcript, s.cfg.ChunkWords)
	n, err := NewIngester(s.deps.Embedder, s.deps.Index, s.cfg.Ingest).Ingest(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingesting transcript: %w", err)
	}

	s.println(fmt.Sprintf("%d chunks embedded and uploaded to %s.", n, s.deps.Index.Name()))
	s.transition(StateEmbedded)
	return nil
}

func (s *Session) chat(ctx context.Context) error {
	s.transition(StateChatting)
	if s.cfg.Mode == config.ModeBasic {
		s.println("\nYou can now ask questions about the transcript.")
		s.println("Type 'exit' to quit.")
	} else {
		s.println("\nYou can now ask questions. Type 'exit' to quit.")
	}
	s.println()

	for {
		if ctx.Err() != nil {
			return s.interrupt(ctx)
		}

		line, err := s.prompt(ctx, "Your question: ")
		if errors.Is(err, io.EOF) {
			return s.exit(ctx)
		}
		if ctx.Err() != nil {
			return s.interrupt(ctx)
		}
		if err != nil {
			s.transition(StateExited)
			return fmt.Errorf("reading question: %w", err)
		}

		question := strings.TrimSpace(line)
		if strings.EqualFold(question, "exit") {
			return s.exit(ctx)
		}
		if question == "" {
			continue
		}

		s.ask(ctx, question)
	}
}

// ask answers one question. Failures are reported and do not end the session.
func (s *Session) ask(ctx context.Context, question string) {
	if s.transcript == "" {
		s.println("\nNo transcript is available for this video, so there is nothing to answer from.")
		s.println()
		return
	}

	var (
		answer string
		err    error
	)
	if s.cfg.Mode == config.ModeBasic {
		answer, err = s.qa.AskBasic(ctx, s.transcript, question)
	} else {
		answer, err = s.qa.AskRetrieval(ctx, s.videoID, question)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("question failed", "error", err)
		s.println("Error:", err)
		return
	}

	fmt.Fprintf(s.out, "\n%s %s\n\n", s.label.Render("Assistant:"), answer)
}

// interrupt ends the session on context cancellation, still running the exit teardown
func (s *Session) interrupt(ctx context.Context) error {
	s.println()
	if err := s.exit(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Session) exit(ctx context.Context) error {
	s.println("Exiting chat. Goodbye!")
	s.transition(StateExited)

	if !s.cfg.DropIndexOnExit || s.cfg.Mode != config.ModeRetrieval || s.deps.Index == nil {
		return nil
	}
	if err := s.deps.Index.DeleteIndex(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("dropping index", "index", s.deps.Index.Name(), "error", err)
		return fmt.Errorf("dropping index %s: %w", s.deps.Index.Name(), err)
	}
	s.logger.Info("dropped index", "index", s.deps.Index.Name())
	return nil
}

// prompt writes text without a newline and waits for one line of input or ctx
func (s *Session) prompt(ctx context.Context, text string) (string, error) {
	fmt.Fprint(s.out, text)
	s.once.Do(func() { go s.readLines() })

	var r lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r = <-s.lines:
	}

	line, err := r.line, r.err
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
		}
		return line, err
	}
	return line, nil
}

// readLines feeds s.lines until the session is done. Once input fails the
// error is repeated for every later prompt.
func (s *Session) readLines() {
	for {
		line, err := s.in.ReadString('\n')
		for {
			select {
			case s.lines <- lineResult{line: line, err: err}:
			case <-s.done:
				return
			}
			if err == nil {
				break
			}
			line = ""
		}
	}
}

func (s *Session) println(args ...any) {
	fmt.Fprintln(s.out, args...)
}
