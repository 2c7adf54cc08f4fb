package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/safetyrag"
	"github.com/poiesic/safetyrag/config"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/corpus"
	"github.com/poiesic/safetyrag/search"
	"github.com/urfave/cli/v2"
)

// session ties a command to its engine and searcher. In file mode the corpus
// files are held in memory and the database is not touched.
type session struct {
	cfg       *config.Config
	engine    *safetyrag.Engine
	files     *corpus.MemorySource
	searcher  *search.Searcher
	logger    *slog.Logger

	mu        sync.RWMutex
	standards *core.Standards // Replaced on reload
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("guidebook") {
		cfg.Corpus.Guidebook = c.String("guidebook")
	}
	if c.IsSet("incidents") {
		cfg.Corpus.Incidents = c.String("incidents")
	}
	if c.IsSet("embeddings") {
		cfg.Embedding.Enabled = c.Bool("embeddings")
	}
	if c.IsSet("generation") {
		cfg.Generation.Enabled = c.Bool("generation")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fileMode(cfg *config.Config) bool {
	return cfg.Corpus.Guidebook != "" || cfg.Corpus.Incidents != ""
}

// openEngine opens the database, or an in-memory store when forceMemory is set.
func openEngine(cfg *config.Config, forceMemory bool) (*safetyrag.Engine, error) {
	opts := []safetyrag.Option{
		safetyrag.WithBatcherOptions(cfg.BatcherOptions()...),
	}
	if cfg.Embedding.Enabled || cfg.Generation.Enabled {
		opts = append(opts, safetyrag.WithAIConfig(cfg.AIConfig()))
	}
	if !cfg.Embedding.Enabled {
		opts = append(opts, safetyrag.WithoutEmbeddings())
	}
	if !cfg.Generation.Enabled {
		opts = append(opts, safetyrag.WithoutGeneration())
	}
	if forceMemory || cfg.Storage.InMemory {
		opts = append(opts, safetyrag.WithInMemory())
	}

	engine, err := safetyrag.Open(cfg.Storage.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: slog.Default().With("component", "cli"),
	}

	s.engine, err = openEngine(cfg, fileMode(cfg))
	if err != nil {
		return nil, err
	}

	if fileMode(cfg) {
		s.files = corpus.NewMemorySource()
		if err := s.loadFiles(); err != nil {
			s.Close()
			return nil, err
		}
		s.searcher, err = s.engine.NewSearcherOver(s.files, cfg.SearchOptions()...)
	} else {
		standards, err := s.engine.Standards().LoadStandards(c.Context)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load standards: %w", err)
		}
		s.setStandards(standards)
		s.searcher, err = s.engine.NewSearcher(cfg.SearchOptions()...)
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) loadFiles() error {
	static, err := corpus.LoadFiles(s.cfg.Corpus.Guidebook, s.cfg.Corpus.Incidents)
	if err != nil {
		return err
	}
	s.files.Replace(static.Documents...)
	s.setStandards(static.Standards)
	return nil
}

func (s *session) setStandards(standards *core.Standards) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standards = standards
}

func (s *session) Standards() *core.Standards {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.standards
}

// reload rereads the corpus files and rebuilds the index.
func (s *session) reload(ctx context.Context) error {
	if err := s.loadFiles(); err != nil {
		return err
	}
	if err := s.searcher.Rebuild(ctx); err != nil {
		return err
	}
	s.logger.Info("corpus reloaded", "documents", s.files.Len(), "generation", s.searcher.Generation())
	return nil
}

// resolveDocuments looks up each id, given as "<kind>:<id>" or a bare id
// tried against every kind in corpus order. Unknown ids are skipped.
func (s *session) resolveDocuments(ctx context.Context, ids []string) ([]*core.Document, error) {
	var docs []*core.Document
	for _, id := range ids {
		kinds := core.Kinds
		if prefix, rest, ok := strings.Cut(id, ":"); ok {
			if kind, err := core.ParseKind(prefix); err == nil {
				kinds, id = []core.Kind{kind}, rest
			}
		}

		found := false
		for _, kind := range kinds {
			doc, err := s.searcher.Get(ctx, kind, id)
			if errors.Is(err, search.ErrDocumentNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			found = true
			break
		}
		if !found {
			s.logger.Warn("document not found", "id", id)
		}
	}
	if len(docs) == 0 {
		return nil, errNoDocumentsFound
	}
	return docs, nil
}

func (s *session) topN(c *cli.Context) int {
	if c.IsSet("top") {
		return c.Int("top")
	}
	return s.cfg.Search.TopN
}

func (s *session) Close() {
	if s.searcher != nil {
		s.searcher.Close()
	}
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Error("error closing engine", "err", err)
		}
	}
}
