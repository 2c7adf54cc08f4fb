package answer

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/safetyrag/lexical"
)

const (
	MinSeverity     = 1
	MaxSeverity     = 5
	defaultSeverity = 3
)

var severityLevels = map[int]string{
	1: "Minimal Risk",
	2: "Low Risk",
	3: "Moderate Risk",
	4: "High Risk",
	5: "Critical Risk",
}

// SeverityLevel names a severity rating.
func SeverityLevel(severity int) string {
	return severityLevels[max(MinSeverity, min(MaxSeverity, severity))]
}

type keywordRule struct {
	level    string
	adjust   int
	keywords []string
}

// Rules are applied in order. A keyword listed under two levels counts for both.
var keywordRules = []keywordRule{
	{"severe", 2, []string{"severe", "major", "critical", "extreme", "fatal", "death", "explosion"}},
	{"high", 1, []string{"high", "significant", "serious", "fire", "injury", "hospital", "toxic"}},
	{"medium", 0, []string{"medium", "moderate", "significant", "spill", "leak", "exposure"}},
	{"low", -1, []string{"low", "minor", "small", "minimal", "limited", "contained"}},
}

type hazardRule struct {
	phrase   string
	severity int
}

var hazardRules = []hazardRule{
	{"toxic gases", 5},
	{"flammable gases", 4},
	{"corrosive materials", 4},
	{"flammable liquids", 3},
	{"oxidizers", 3},
	{"common chemicals", 2},
	{"non hazardous", 1},
}

var quantityPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(gallon|liter|kg|pound|ton|people|worker|patient|victim)\w*\b`)

// Assessment is the outcome of rating an incident description.
type Assessment struct {
	Severity int
	Level    string
	// Evidence lists the findings that moved the rating, in the order applied.
	Evidence []string
	Insights []string
}

// Rationale renders the evidence behind the rating.
func (a *Assessment) Rationale() string {
	var sb strings.Builder
	sb.WriteString("Risk assessment rationale:\n")
	if len(a.Evidence) == 0 {
		sb.WriteString("- No specific risk factors identified, using default moderate risk assessment")
	}
	for i, item := range a.Evidence {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + item)
	}
	fmt.Fprintf(&sb, "\n\nFinal severity rating: %d/%d - %s", a.Severity, MaxSeverity, a.Level)
	return sb.String()
}

// InsightsText renders the predictive insights as a bulleted list.
func (a *Assessment) InsightsText() string {
	bullets := make([]string, len(a.Insights))
	for i, insight := range a.Insights {
		bullets[i] = "• " + insight
	}
	return "Predictive Insights:\n\n" + strings.Join(bullets, "\n\n")
}

// RiskAnalyzer rates incident descriptions with fixed keyword, hazard class
// and quantity rules.
type RiskAnalyzer struct {
	now    func() time.Time
	logger *slog.Logger
}

type RiskOption func(*RiskAnalyzer) error

// WithClock sets the clock used for seasonal insights.
func WithClock(now func() time.Time) RiskOption {
	return func(r *RiskAnalyzer) error {
		if now == nil {
			now = time.Now
		}
		r.now = now
		return nil
	}
}

func WithRiskLogger(logger *slog.Logger) RiskOption {
	return func(r *RiskAnalyzer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

func NewRiskAnalyzer(opts ...RiskOption) (*RiskAnalyzer, error) {
	r := &RiskAnalyzer{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "risk")
	return r, nil
}

// Assess rates details and attaches predictive insights.
func (r *RiskAnalyzer) Assess(details string) (*Assessment, error) {
	if strings.TrimSpace(details) == "" {
		return nil, ErrEmptyDetails
	}
	severity, evidence := r.AssessSeverity(details)
	r.logger.Debug("assessed severity", "severity", severity, "evidence", len(evidence))
	return &Assessment{
		Severity: severity,
		Level:    SeverityLevel(severity),
		Evidence: evidence,
		Insights: r.PredictInsights(details, severity),
	}, nil
}

// AssessSeverity starts from a moderate rating, adjusts it for severity
// keywords, raises it to the base severity of any named hazard class, adds
// for large quantities or several people affected, and clamps the result.
func (r *RiskAnalyzer) AssessSeverity(details string) (int, []string) {
	severity := defaultSeverity
	var evidence []string

	tokens := lexical.Tokenize(details)
	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[t] = struct{}{}
	}

	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if _, ok := present[keyword]; !ok {
				continue
			}
			evidence = append(evidence, fmt.Sprintf("Contains '%s' which indicates %s severity", keyword, rule.level))
			severity += rule.adjust
		}
	}

	for _, rule := range hazardRules {
		if containsPhrase(tokens, strings.Fields(rule.phrase)) {
			evidence = append(evidence, fmt.Sprintf("Involves '%s' with base severity %d", rule.phrase, rule.severity))
			severity = max(severity, rule.severity)
		}
	}

	for _, match := range quantityPattern.FindAllStringSubmatch(details, -1) {
		amount, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		unit := strings.ToLower(match[2])
		switch {
		case (unit == "gallon" || unit == "liter") && amount > 50,
			(unit == "kg" || unit == "pound") && amount > 100:
			evidence = append(evidence, fmt.Sprintf("Large quantity: %d %ss", amount, unit))
			severity++
		case unit == "ton" && amount > 1:
			evidence = append(evidence, fmt.Sprintf("Large quantity: %d %ss", amount, unit))
			severity += 2
		case slices.Contains([]string{"people", "worker", "patient", "victim"}, unit) && amount > 1:
			evidence = append(evidence, fmt.Sprintf("Multiple affected: %d %ss", amount, unit))
			severity++
		}
	}

	return max(MinSeverity, min(MaxSeverity, severity)), evidence
}

// PredictInsights returns the general, seasonal and hazard-specific insights
// for details, closing with a recommendation.
func (r *RiskAnalyzer) PredictInsights(details string, severity int) []string {
	text := strings.ToLower(details)
	mentions := func(words ...string) bool {
		return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(text, w) })
	}

	var insights []string
	switch {
	case severity >= 4:
		insights = append(insights, "This type of high-severity incident has a significant chance of recurrence if systematic safety measures are not implemented.")
	case severity == 3:
		insights = append(insights, "Moderate-risk incidents like this frequently indicate underlying process or procedural weaknesses that should be addressed.")
	default:
		insights = append(insights, "While this is a lower-risk event, similar incidents can accumulate to create systemic risks if patterns are not identified and addressed.")
	}

	month := r.now().Month()
	if month >= time.May && month <= time.September && mentions("chemical", "spill") {
		insights = append(insights, "Chemical incidents tend to increase by 15-20% during summer months due to higher temperatures affecting storage stability and increasing vapor pressure.")
	}
	if (month >= time.November || month <= time.February) && mentions("fire", "heating") {
		insights = append(insights, "Fire and heating-related incidents show a 25% increase during winter months due to increased use of heating equipment and systems.")
	}

	if mentions("corrosive", "acid", "base") {
		insights = append(insights, "Corrosive material incidents historically show a 60% likelihood of equipment failure as a root cause, with 30% related to procedural non-compliance.")
	}
	if mentions("gas", "leak") {
		insights = append(insights, "Gas leak incidents have a 40% correlation with maintenance delays and a 35% correlation with equipment reaching end-of-service life.")
	}
	if mentions("fire", "explosion") {
		insights = append(insights, "Fire/explosion events show a 70% correlation with failure to implement proper hot work procedures and isolation protocols.")
	}

	switch {
	case severity >= 4:
		insights = append(insights, "Recommendation: Implement comprehensive process safety management review including hazard analysis (HAZOP) and establish more frequent inspection protocols.")
	case severity == 3:
		insights = append(insights, "Recommendation: Review and update standard operating procedures and ensure proper training and competency verification for all personnel involved.")
	default:
		insights = append(insights, "Recommendation: Document the incident in detail and incorporate into safety briefings to maintain awareness of potential hazards.")
	}
	return insights
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		if slices.Equal(tokens[i:i+len(phrase)], phrase) {
			return true
		}
	}
	return false
}
