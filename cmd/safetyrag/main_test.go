package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/safetyrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

var (
	guidebookPath = filepath.Join("..", "..", "corpus", "testdata", "guidebook.json")
	incidentsPath = filepath.Join("..", "..", "corpus", "testdata", "incidents.json")
)

// run executes the app with args and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SAFETYRAG_DB", "")

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"safetyrag", "--log-level", "error"}, args...))
	return out.String(), err
}

func fileArgs() []string {
	return []string{"--guidebook", guidebookPath, "--incidents", incidentsPath}
}

func TestSearchCommand(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "search", "chlorine", "gas")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Found ")
	assert.Contains(t, out, "1. [protocol] Chlorine Gas (HM-001)")
	assert.Contains(t, out, "lexical")
}

func TestSearchCommand_JSON(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "search", "--json", "--top", "1", "chlorine gas")...)
	require.NoError(t, err)

	var results []resultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "HM-001", results[0].ID)
	assert.Equal(t, []string{"chlorine", "gas"}, results[0].MatchedTerms)
}

func TestSearchCommand_NoResults(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "search", "quarterly", "budget")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestSearchCommand_MissingQuery(t *testing.T) {
	_, err := run(t, "", append(fileArgs(), "search")...)
	assert.ErrorIs(t, err, errMissingArgument)
}

func TestSimilarCommand(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "similar", "INC-2023-001")...)
	require.NoError(t, err)
	assert.NotContains(t, out, "(INC-2023-001)")
	assert.Contains(t, out, "Response times: ")
}

func TestShowCommand(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "show", "incident", "1002")...)
	require.NoError(t, err)
	assert.Contains(t, out, "incident/1002: Gasoline spill at loading dock")
	assert.Contains(t, out, "hazard_type: chemical")

	_, err = run(t, "", append(fileArgs(), "show", "incident")...)
	assert.ErrorIs(t, err, errMissingArgument)

	_, err = run(t, "", append(fileArgs(), "show", "memo", "1")...)
	assert.Error(t, err)
}

func TestAnswerCommand(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "answer", "chlorine gas")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Here's what I found:")
	assert.Contains(t, out, "Sources (template):")
	assert.Contains(t, out, "- protocol/HM-001 Chlorine Gas")
}

func TestRiskCommand(t *testing.T) {
	out, err := run(t, "", "risk", "Fatal", "explosion", "at", "the", "plant")
	require.NoError(t, err)
	assert.Contains(t, out, "Severity: 5/5 (Critical Risk)")
	assert.Contains(t, out, "- Contains 'fatal' which indicates severe severity")
	assert.Contains(t, out, "Predictive Insights:")
}

func TestRiskCommand_JSON(t *testing.T) {
	out, err := run(t, "", "risk", "--json", "3 workers exposed")
	require.NoError(t, err)

	var assessment assessmentJSON
	require.NoError(t, json.Unmarshal([]byte(out), &assessment))
	assert.Equal(t, 4, assessment.Severity)
	assert.Equal(t, "High Risk", assessment.Level)
	assert.NotEmpty(t, assessment.Insights)
}

func TestRiskCommand_MissingDetails(t *testing.T) {
	_, err := run(t, "", "risk")
	assert.ErrorIs(t, err, errMissingArgument)
}

func TestSummarizeCommand(t *testing.T) {
	out, err := run(t, "", append(fileArgs(), "summarize", "HM-001", "incident:INC-2023-003", "HM-404")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary of 2 documents (extractive):")
	assert.Contains(t, out, "Toxic yellow-green gas that irritates the respiratory system. Electrical fault ignited stored cardboard.")
}

func TestSummarizeCommand_NoDocuments(t *testing.T) {
	_, err := run(t, "", append(fileArgs(), "summarize", "protocol:INC-2023-003")...)
	assert.ErrorIs(t, err, errNoDocumentsFound)

	_, err = run(t, "", append(fileArgs(), "summarize")...)
	assert.ErrorIs(t, err, errMissingArgument)
}

func TestLoadCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := run(t, "", append([]string{"--db", db}, append(fileArgs(), "load")...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 5 documents")

	out, err = run(t, "", "--db", db, "search", "chlorine gas")
	require.NoError(t, err)
	assert.Contains(t, out, "(HM-001)")

	out, err = run(t, "", "--db", db, "similar", "chlorine leak")
	require.NoError(t, err)
	assert.Contains(t, out, "Response times: ")
}

func TestLoadCommand_RequiresFiles(t *testing.T) {
	_, err := run(t, "", "--db", t.TempDir(), "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--guidebook")
}

func TestReembedCommand_RequiresEmbeddings(t *testing.T) {
	_, err := run(t, "", "--db", t.TempDir(), "reembed")
	assert.ErrorIs(t, err, safetyrag.ErrNoProvider)
}

func TestShellCommand(t *testing.T) {
	stdin := "chlorine gas\n\nsimilar gasoline spill\nshow protocol HM-001\nshow protocol\nquit\nwarehouse\n"
	out, err := run(t, stdin, append(fileArgs(), "shell")...)
	require.NoError(t, err)
	assert.Contains(t, out, "(HM-001)")
	assert.Contains(t, out, "Response times: ")
	assert.Contains(t, out, "protocol/HM-001: Chlorine Gas")
	assert.Contains(t, out, "usage: show <kind> <id>")
	// Input after quit is ignored
	assert.NotContains(t, out, "Warehouse fire")
}

func TestShellCommand_WatchRequiresFiles(t *testing.T) {
	_, err := run(t, "quit\n", "--db", t.TempDir(), "shell", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
				assert.True(t, slog.Default().Enabled(t.Context(), tc.expected))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := run(t, "", "--log-level", "invalid", "search", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newApp()
		var flag *cli.StringFlag
		for _, f := range app.Flags {
			if sf, ok := f.(*cli.StringFlag); ok && sf.Name == "log-level" {
				flag = sf
			}
		}
		require.NotNil(t, flag)
		assert.Equal(t, []string{"l"}, flag.Aliases)
		assert.Equal(t, "info", flag.Value)
	})
}
