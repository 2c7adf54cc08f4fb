package answer

import (
	"fmt"
	"strconv"

	"github.com/poiesic/safetyrag/core"
)

// Comparison benchmarks incident response times against an industry standard.
// Averages are nil when they could not be computed.
type Comparison struct {
	Summary         string
	HazardType      string
	IndustryAverage *float64
	IncidentAverage *float64
}

// CompareResponseTimes averages the response times of the incidents among
// results and compares them with the standard for their most common hazard
// type. Ties between hazard types go to the one seen first.
func CompareResponseTimes(results []*core.ScoredResult, standards *core.Standards) *Comparison {
	var (
		hazards []string
		counts  = make(map[string]int)
		times   []float64
	)
	incidents := 0
	for _, r := range results {
		if r.Kind() != core.KindIncident {
			continue
		}
		incidents++
		if h := r.Document.Meta(core.MetaHazardType); h != "" {
			if counts[h] == 0 {
				hazards = append(hazards, h)
			}
			counts[h]++
		}
		if v, err := strconv.ParseFloat(r.Document.Meta(core.MetaResponseTimeMinutes), 64); err == nil {
			times = append(times, v)
		}
	}

	if incidents == 0 {
		return &Comparison{Summary: "No incidents to compare"}
	}
	if len(hazards) == 0 || len(times) == 0 {
		return &Comparison{Summary: "Insufficient data for comparison"}
	}

	hazard := hazards[0]
	for _, h := range hazards[1:] {
		if counts[h] > counts[hazard] {
			hazard = h
		}
	}

	var sum float64
	for _, v := range times {
		sum += v
	}
	incidentAvg := sum / float64(len(times))

	standard, ok := standards.Lookup(hazard)
	if !ok || standard == 0 {
		return &Comparison{
			Summary:         fmt.Sprintf("No industry standard available for %s", hazard),
			HazardType:      hazard,
			IncidentAverage: &incidentAvg,
		}
	}

	summary := fmt.Sprintf("Response time is slower than industry standard (%.1f min vs %s min standard)",
		incidentAvg, formatMinutes(standard))
	if incidentAvg <= standard {
		summary = fmt.Sprintf("Response time is better than or equal to industry standard (%.1f min vs %s min standard)",
			incidentAvg, formatMinutes(standard))
	}

	return &Comparison{
		Summary:         summary,
		HazardType:      hazard,
		IndustryAverage: &standard,
		IncidentAverage: &incidentAvg,
	}
}

func formatMinutes(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
