package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
)

const (
	WelcomeMessage           = "Hello! How can I help you?"
	NoDocumentMessage        = "Please select a document first."
	MissingCredentialMessage = "Please add your API key to continue."
	generationFailurePrefix  = "Sorry, I could not answer that: "
	loadedGreetingFormat     = "Hello! I've loaded %s. How can I help you?"
	pdfMimeType              = "application/pdf"
)

// SessionDeps are the collaborators shared by every session built by a
// SessionFactory. Catalog, Events, Observer and Logger are optional.
type SessionDeps struct {
	Extractor    ports.TextExtractor
	Chunker      ports.Chunker
	Indexes      ports.IndexOpener
	Reformulator ports.Reformulator
	Composer     ports.Composer
	NewHistory   func() ports.HistoryStore

	Catalog    ports.IndexCatalog
	Events     ports.IndexEventPublisher
	Observer   Observer
	Logger     *slog.Logger
	EmbedModel string

	// HasCredential reports whether the provider API key is configured.
	// A nil func means it is.
	HasCredential func() bool
	NewIndexID    func() string
	Now           func() time.Time
}

type SessionFactory struct {
	deps SessionDeps
}

func NewSessionFactory(deps SessionDeps) *SessionFactory {
	if deps.Observer == nil {
		deps.Observer = NoopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewIndexID == nil {
		deps.NewIndexID = NewIndexID
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &SessionFactory{deps: deps}
}

// NewSession starts a session with an empty registry, no loaded index and
// the welcome message.
func (f *SessionFactory) NewSession() *Session {
	id := NewIndexID()
	s := &Session{
		id:      id,
		deps:    f.deps,
		history: f.deps.NewHistory(),
		logger:  f.deps.Logger.With("session_id", id),
	}
	s.messages = []domain.Message{s.assistantMessage(WelcomeMessage)}
	return s
}

// NewIndexID returns 32 lowercase hex characters.
func NewIndexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Session owns the state of one conversation. Transitions are serialized.
type Session struct {
	id      string
	deps    SessionDeps
	history ports.HistoryStore
	logger  *slog.Logger

	mu            sync.Mutex
	registry      []domain.RegistryEntry
	retriever     ports.Retriever
	loadedIndexID string
	selected      string
	messages      []domain.Message
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// UploadDocument indexes a new PDF and makes it the active document. A
// filename that is already registered is selected instead of rebuilt.
func (s *Session) UploadDocument(ctx context.Context, upload domain.Upload) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCredential("upload document"); err != nil {
		return s.snapshot(), err
	}

	filename := filepath.Base(strings.TrimSpace(upload.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return s.snapshot(), domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}
	if !IsPDF(filename, upload.MimeType) {
		return s.snapshot(), domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("%s is not a PDF", filename))
	}

	if _, ok := s.lookup(filename); ok {
		return s.selectLocked(ctx, filename)
	}

	doc := domain.Document{Filename: filename, MimeType: upload.MimeType, Data: upload.Data}
	pages, err := s.deps.Extractor.Extract(ctx, doc.Filename, doc.Data)
	if err != nil {
		if !domain.IsKind(err, domain.ErrExtraction) {
			err = domain.WrapError(domain.ErrExtraction, "upload document", err)
		}
		return s.snapshot(), err
	}
	doc.Pages = pages

	chunks := s.deps.Chunker.Split(doc.Pages)
	if len(chunks) == 0 {
		return s.snapshot(), domain.WrapError(domain.ErrExtraction, "upload document", fmt.Errorf("%s has no extractable text", filename))
	}

	indexID := s.deps.NewIndexID()
	retriever, err := s.deps.Indexes.OpenOrCreate(ctx, indexID, chunks)
	if err != nil {
		return s.snapshot(), fmt.Errorf("set up index for %s: %w", filename, err)
	}

	entry := domain.RegistryEntry{
		Filename:  filename,
		IndexID:   indexID,
		Pages:     len(doc.Pages),
		Chunks:    len(chunks),
		CreatedAt: s.deps.Now(),
	}
	s.registry = append(s.registry, entry)
	s.announce(ctx, entry)

	s.activate(retriever, filename)
	s.logger.Info("session_document_uploaded", "filename", filename, "index_id", indexID, "pages", entry.Pages, "chunks", entry.Chunks)
	return s.snapshot(), nil
}

// SelectDocument makes a registered document active. Its index is reopened
// only when it is not the loaded one. History is always cleared.
func (s *Session) SelectDocument(ctx context.Context, filename string) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCredential("select document"); err != nil {
		return s.snapshot(), err
	}
	return s.selectLocked(ctx, filename)
}

func (s *Session) selectLocked(ctx context.Context, filename string) (domain.SessionState, error) {
	entry, ok := s.lookup(filename)
	if !ok {
		return s.snapshot(), domain.WrapError(domain.ErrDocumentNotFound, "select document", fmt.Errorf("filename=%s", filename))
	}

	retriever := s.retriever
	if retriever == nil || entry.IndexID != s.loadedIndexID {
		opened, err := s.deps.Indexes.OpenOrCreate(ctx, entry.IndexID, nil)
		if err != nil {
			return s.snapshot(), fmt.Errorf("reopen index for %s: %w", filename, err)
		}
		retriever = opened
	}

	s.activate(retriever, entry.Filename)
	s.logger.Info("session_document_selected", "filename", entry.Filename, "index_id", entry.IndexID)
	return s.snapshot(), nil
}

// AskQuestion runs one reformulate, retrieve and compose turn. On a
// generation failure the returned reply carries the visible error message
// and the history is left unchanged.
func (s *Session) AskQuestion(ctx context.Context, text string) (*domain.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCredential("ask question"); err != nil {
		return nil, err
	}
	question := strings.TrimSpace(text)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask question", errors.New("question is empty"))
	}

	s.messages = append(s.messages, domain.Message{Role: domain.RoleUser, Content: question, CreatedAt: s.deps.Now()})
	reply := &domain.Reply{Question: question}

	if s.retriever == nil {
		reply.Message = s.assistantMessage(NoDocumentMessage)
		s.messages = append(s.messages, reply.Message)
		return reply, nil
	}

	start := time.Now()
	history := s.history.All()

	standalone, err := s.deps.Reformulator.Reformulate(ctx, history, question)
	if err != nil {
		return s.fail(reply, start, err)
	}
	reply.StandaloneQuestion = standalone

	chunks, err := s.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return s.fail(reply, start, err)
	}

	answer, err := s.deps.Composer.Compose(ctx, history, question, chunks)
	if err != nil {
		return s.fail(reply, start, err)
	}

	reply.Sources = domain.SourcesOf(chunks)
	reply.Message = s.assistantMessage(answer)
	reply.Message.Sources = reply.Sources
	s.messages = append(s.messages, reply.Message)
	s.history.Append(domain.RoleUser, question)
	s.history.Append(domain.RoleAssistant, answer)

	s.deps.Observer.ObserveTurn("success", len(chunks), time.Since(start))
	return reply, nil
}

func (s *Session) fail(reply *domain.Reply, start time.Time, err error) (*domain.Reply, error) {
	if !domain.IsKind(err, domain.ErrGeneration) {
		err = domain.WrapError(domain.ErrGeneration, "answer question", err)
	}
	reply.Message = s.assistantMessage(generationFailurePrefix + err.Error())
	reply.Message.Error = true
	s.messages = append(s.messages, reply.Message)

	s.deps.Observer.ObserveTurn("error", 0, time.Since(start))
	s.logger.Warn("session_turn_failed", "index_id", s.loadedIndexID, "error", err)
	return reply, err
}

func (s *Session) activate(retriever ports.Retriever, filename string) {
	s.retriever = retriever
	s.loadedIndexID = retriever.IndexID()
	s.selected = filename
	s.history.Clear()
	s.messages = []domain.Message{s.assistantMessage(fmt.Sprintf(loadedGreetingFormat, filename))}
}

// announce records the new index in the catalog and publishes an event.
// Neither failure affects the upload.
func (s *Session) announce(ctx context.Context, entry domain.RegistryEntry) {
	record := domain.IndexRecord{
		IndexID:    entry.IndexID,
		Filename:   entry.Filename,
		Pages:      entry.Pages,
		Chunks:     entry.Chunks,
		EmbedModel: s.deps.EmbedModel,
		CreatedAt:  entry.CreatedAt,
	}
	if s.deps.Catalog != nil {
		if err := s.deps.Catalog.RecordIndex(ctx, record); err != nil {
			s.logger.Warn("index_catalog_failed", "index_id", record.IndexID, "error", err)
		}
	}
	if s.deps.Events != nil {
		if err := s.deps.Events.PublishIndexCreated(ctx, record); err != nil {
			s.logger.Warn("index_event_failed", "index_id", record.IndexID, "error", err)
		}
	}
}

func (s *Session) checkCredential(operation string) error {
	if s.deps.HasCredential == nil || s.deps.HasCredential() {
		return nil
	}
	return domain.WrapError(domain.ErrConfiguration, operation, errors.New(MissingCredentialMessage))
}

func (s *Session) lookup(filename string) (domain.RegistryEntry, bool) {
	for _, e := range s.registry {
		if e.Filename == filename {
			return e, true
		}
	}
	return domain.RegistryEntry{}, false
}

func (s *Session) assistantMessage(content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content, CreatedAt: s.deps.Now()}
}

func (s *Session) snapshot() domain.SessionState {
	registry := make([]domain.RegistryEntry, len(s.registry))
	copy(registry, s.registry)
	messages := make([]domain.Message, len(s.messages))
	copy(messages, s.messages)
	return domain.SessionState{
		ID:               s.id,
		Registry:         registry,
		LoadedIndexID:    s.loadedIndexID,
		SelectedDocument: s.selected,
		Messages:         messages,
		HistoryTurns:     s.history.Len(),
	}
}

// IsPDF accepts a PDF mime type, or a .pdf name when the type is missing or generic.
func IsPDF(filename, mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case pdfMimeType, "application/x-pdf":
		return true
	case "", "application/octet-stream":
		return strings.EqualFold(filepath.Ext(filename), ".pdf")
	default:
		return false
	}
}
