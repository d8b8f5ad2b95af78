package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

const (
	DefaultCallTimeout = 2 * time.Minute

	lockStripes = 64
)

// Options wires a Service.
type Options struct {
	Store           Store
	LLM             llm.Client
	Encoder         *document.Encoder
	Logger          *zap.Logger
	CallTimeout     time.Duration
	DefaultLanguage i18n.Language
}

// Service applies session transitions on behalf of concurrent HTTP clients.
// Transitions for one session are serialized; the lock is released while a
// provider call is in flight.
type Service struct {
	store    Store
	llm      llm.Client
	encoder  *document.Encoder
	logger   *zap.Logger
	timeout  time.Duration
	language i18n.Language

	locks [lockStripes]sync.Mutex
	wg    sync.WaitGroup
}

func NewService(opts Options) *Service {
	svc := &Service{
		store:    opts.Store,
		llm:      opts.LLM,
		encoder:  opts.Encoder,
		logger:   opts.Logger,
		timeout:  opts.CallTimeout,
		language: opts.DefaultLanguage,
	}
	if svc.store == nil {
		svc.store = NewMemoryStore(DefaultTTL)
	}
	if svc.encoder == nil {
		svc.encoder = document.NewEncoder(0)
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.timeout <= 0 {
		svc.timeout = DefaultCallTimeout
	}
	if svc.language == "" {
		svc.language = i18n.English
	}
	return svc
}

// Encoder exposes the upload limits to the transport layer.
func (s *Service) Encoder() *document.Encoder {
	return s.encoder
}

// Create starts an idle session. An empty lang uses the service default.
func (s *Service) Create(ctx context.Context, lang i18n.Language) (State, error) {
	if lang == "" {
		lang = s.language
	}
	state, err := New(uuid.NewString(), i18n.English).SetLanguage(lang)
	if err != nil {
		return State{}, err
	}
	if err := s.store.Save(ctx, state); err != nil {
		return State{}, err
	}
	s.logger.Info("session created", zap.String("session", state.ID), zap.String("language", string(state.Language)))
	return state, nil
}

func (s *Service) Get(ctx context.Context, id string) (State, error) {
	return s.store.Load(ctx, id)
}

// Upload records the session as reading, encodes the file outside the lock
// and starts extraction in the background. A rejected file returns the
// session to idle with the reason kept in LastError.
func (s *Service) Upload(ctx context.Context, id string, up document.Upload) (State, error) {
	reading, err := s.update(ctx, id, func(state State) (State, error) {
		return state.BeginUpload(up.Name)
	})
	if err != nil {
		return reading, err
	}
	gen := reading.Generation

	// The outcome must be recorded even if the caller goes away while the
	// body is read, or the session would stay in reading.
	ctx = context.WithoutCancel(ctx)
	doc, encodeErr := s.encoder.Encode(up)
	if encodeErr != nil {
		s.logger.Warn("upload rejected", zap.String("session", id), zap.String("file", up.Name), zap.Error(encodeErr))
		idle, err := s.update(ctx, id, func(state State) (State, error) {
			return state.EncodingFailed(gen, encodeErr)
		})
		if err != nil && !errors.Is(err, ErrStale) {
			return idle, err
		}
		return idle, encodeErr
	}

	analyzing, err := s.update(ctx, id, func(state State) (State, error) {
		return state.DocumentEncoded(gen, doc)
	})
	if err != nil {
		if errors.Is(err, ErrStale) {
			s.logger.Info("discarding stale upload", zap.String("session", id), zap.Uint64("generation", gen))
		}
		return analyzing, err
	}

	s.logger.Info("document accepted",
		zap.String("session", id),
		zap.String("file", doc.Name),
		zap.Int64("bytes", doc.Size),
		zap.Int("pages", doc.Pages),
		zap.Uint64("generation", gen),
	)
	s.wg.Add(1)
	go s.extract(id, gen, doc, analyzing.Language)
	return analyzing, nil
}

func (s *Service) extract(id string, gen uint64, doc document.Document, lang i18n.Language) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	axioms, callErr := s.llm.ExtractAxioms(ctx, doc, lang)

	_, err := s.update(context.Background(), id, func(state State) (State, error) {
		if callErr != nil {
			return state.ExtractionFailed(gen, callErr)
		}
		return state.AxiomsReady(gen, axioms)
	})
	switch {
	case errors.Is(err, ErrStale):
		s.logger.Info("discarding stale extraction", zap.String("session", id), zap.Uint64("generation", gen))
	case err != nil:
		s.logger.Warn("extraction result not applied", zap.String("session", id), zap.Error(err))
	case callErr != nil:
		s.logger.Warn("extraction failed", zap.String("session", id), zap.Duration("elapsed", time.Since(started)), zap.Error(callErr))
	default:
		s.logger.Info("extraction finished", zap.String("session", id), zap.Int("axioms", len(axioms)), zap.Duration("elapsed", time.Since(started)))
	}
}

// Send appends the user's message, waits for the reply and returns the
// resulting state. A reset while waiting yields ErrStale together with the
// reset state.
func (s *Service) Send(ctx context.Context, id, text string) (State, error) {
	var (
		history []llm.Message
		doc     document.Document
	)
	pending, err := s.update(ctx, id, func(state State) (State, error) {
		next, err := state.SendMessage(text)
		if err != nil {
			return state, err
		}
		history = state.Clone().Transcript
		doc = *next.Document
		return next, nil
	})
	if err != nil {
		return pending, err
	}
	gen := pending.Generation
	utterance := pending.Transcript[len(pending.Transcript)-1].Text

	// The reply must land even if the caller goes away mid-call.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	reply, callErr := s.llm.Converse(callCtx, doc, history, utterance)
	if callErr != nil {
		s.logger.Warn("conversation failed", zap.String("session", id), zap.Error(callErr))
	}

	return s.update(context.WithoutCancel(ctx), id, func(state State) (State, error) {
		if callErr != nil {
			return state.ReplyFailed(gen, callErr)
		}
		return state.ReplyReceived(gen, reply)
	})
}

func (s *Service) Reset(ctx context.Context, id string) (State, error) {
	state, err := s.update(ctx, id, func(state State) (State, error) {
		return state.Reset(), nil
	})
	if err == nil {
		s.logger.Info("session reset", zap.String("session", id), zap.Uint64("generation", state.Generation))
	}
	return state, err
}

func (s *Service) SetView(ctx context.Context, id string, mode ViewMode) (State, error) {
	return s.update(ctx, id, func(state State) (State, error) {
		return state.SetView(mode)
	})
}

func (s *Service) ToggleView(ctx context.Context, id string) (State, error) {
	return s.update(ctx, id, State.ToggleView)
}

func (s *Service) SetLanguage(ctx context.Context, id string, lang i18n.Language) (State, error) {
	return s.update(ctx, id, func(state State) (State, error) {
		return state.SetLanguage(lang)
	})
}

// Document returns the loaded document for the document view.
func (s *Service) Document(ctx context.Context, id string) (document.Document, error) {
	state, err := s.store.Load(ctx, id)
	if err != nil {
		return document.Document{}, err
	}
	if state.Document == nil {
		return document.Document{}, ErrNoDocument
	}
	return *state.Document, nil
}

// Wait blocks until background extractions have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// update loads, transforms and saves one session under its lock. On a
// rejected transition it returns the unchanged state alongside the error.
func (s *Service) update(ctx context.Context, id string, fn func(State) (State, error)) (State, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.store.Load(ctx, id)
	if err != nil {
		return State{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return current, fmt.Errorf("save session: %w", err)
	}
	return next, nil
}

func (s *Service) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}
