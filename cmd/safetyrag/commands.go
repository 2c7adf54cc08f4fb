package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/safetyrag"
	"github.com/poiesic/safetyrag/answer"
	"github.com/poiesic/safetyrag/core"
	"github.com/poiesic/safetyrag/corpus"
	"github.com/urfave/cli/v2"
)

var (
	errMissingArgument  = errors.New("missing argument")
	errNoDocumentsFound = errors.New("no valid documents found")
)

func queryArg(c *cli.Context, name string) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, name)
	}
	return query, nil
}

func loadCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !fileMode(cfg) {
		return errors.New("load requires --guidebook or --incidents")
	}

	static, err := corpus.LoadFiles(cfg.Corpus.Guidebook, cfg.Corpus.Incidents)
	if err != nil {
		return err
	}

	engine, err := openEngine(cfg, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Import(c.Context, static); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Loaded %d documents into %s\n", len(static.Documents), cfg.Storage.Path)
	return nil
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c, "query")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.searcher.Search(c.Context, query, s.topN(c))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, results)
	}
	printResults(c.App.Writer, results)
	return nil
}

func similarCommand(c *cli.Context) error {
	description, err := queryArg(c, "description or id")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.searcher.FindSimilar(c.Context, description, s.topN(c))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, results)
	}
	printResults(c.App.Writer, results)
	printComparison(c.App.Writer, answer.CompareResponseTimes(results, s.Standards()))
	return nil
}

func showCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("%w: expected <kind> <id>", errMissingArgument)
	}
	kind, err := core.ParseKind(c.Args().Get(0))
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.searcher.Get(c.Context, kind, c.Args().Get(1))
	if err != nil {
		return err
	}
	printDocument(c.App.Writer, doc)
	return nil
}

func answerCommand(c *cli.Context) error {
	query, err := queryArg(c, "question")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.searcher.Search(c.Context, query, s.topN(c))
	if err != nil {
		return err
	}

	composer, err := s.engine.NewComposer(s.cfg.ComposerOptions()...)
	if err != nil {
		return err
	}
	ans, err := composer.Compose(c.Context, query, results)
	if err != nil {
		return err
	}
	printAnswer(c.App.Writer, ans)
	return nil
}

func riskCommand(c *cli.Context) error {
	details, err := queryArg(c, "incident details")
	if err != nil {
		return err
	}

	analyzer, err := answer.NewRiskAnalyzer(answer.WithRiskLogger(slog.Default()))
	if err != nil {
		return err
	}
	assessment, err := analyzer.Assess(details)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeAssessmentJSON(c.App.Writer, assessment)
	}
	printAssessment(c.App.Writer, assessment)
	return nil
}

func summarizeCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("%w: document ids", errMissingArgument)
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := s.resolveDocuments(c.Context, c.Args().Slice())
	if err != nil {
		return err
	}

	composer, err := s.engine.NewComposer(s.cfg.ComposerOptions()...)
	if err != nil {
		return err
	}
	summary, err := composer.Summarize(c.Context, docs)
	if err != nil {
		return err
	}
	printSummary(c.App.Writer, summary)
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Embedding.Enabled {
		return fmt.Errorf("reembed needs embeddings enabled: %w", safetyrag.ErrNoProvider)
	}

	reembedConfig := cfg.ReembedConfig()
	reembedConfig.BatchSize = c.Int("batch-size")
	reembedConfig.ReportInterval = c.Int("report-interval")
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	engine, err := openEngine(cfg, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	reembedder, err := engine.NewReembedder(reembedConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}
	defer reembedder.Release()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

// shellCommand reads one query per line. Lines starting with "similar " find
// similar incidents, "show <kind> <id>" prints a document, and "quit" exits.
func shellCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Bool("watch") {
		if s.files == nil {
			return errors.New("--watch requires --guidebook or --incidents")
		}
		var paths []string
		for _, p := range []string{s.cfg.Corpus.Guidebook, s.cfg.Corpus.Incidents} {
			if p != "" {
				paths = append(paths, p)
			}
		}
		watcher, err := corpus.NewWatcher(paths, s.reload,
			corpus.WithDebounce(s.cfg.DebounceInterval()),
			corpus.WithWatcherLogger(s.logger))
		if err != nil {
			return err
		}
		if err := watcher.Start(c.Context); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	out := c.App.Writer
	topN := s.topN(c)
	scanner := bufio.NewScanner(c.App.Reader)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "quit" || line == "exit":
			return nil
		case strings.HasPrefix(line, "similar "):
			results, err := s.searcher.FindSimilar(c.Context, strings.TrimPrefix(line, "similar "), topN)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			printResults(out, results)
			printComparison(out, answer.CompareResponseTimes(results, s.Standards()))
		case strings.HasPrefix(line, "show "):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: show <kind> <id>")
				break
			}
			kind, err := core.ParseKind(fields[1])
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			doc, err := s.searcher.Get(c.Context, kind, fields[2])
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			printDocument(out, doc)
		default:
			results, err := s.searcher.Search(c.Context, line, topN)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			printResults(out, results)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
