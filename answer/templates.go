package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/safetyrag/core"
)

const (
	noResultsAnswer = "I couldn't find any relevant safety information for your query. " +
		"Please try rephrasing or provide more details."

	chemicalSpillAnswer = "For chemical spills: 1) Evacuate the area, 2) Alert safety personnel, " +
		"3) Identify the chemical if possible, 4) Contain the spill using appropriate " +
		"materials, 5) Clean up according to safety protocols for the specific chemical."

	fireAnswer = "In case of fire: 1) Activate the nearest fire alarm, 2) Call emergency services, " +
		"3) Evacuate using designated routes, 4) Assemble at the designated meeting point, " +
		"5) Do not use elevators, 6) If trained and if safe to do so, use fire extinguishers " +
		"for small fires."

	ppeAnswer = "Personal Protective Equipment (PPE) requirements depend on the hazard. " +
		"General guidelines include: 1) Eye protection for chemical or particulate hazards, " +
		"2) Gloves appropriate to the material being handled, 3) Respiratory protection " +
		"for airborne hazards, 4) Protective clothing for chemical, thermal, or radiation hazards."
)

// keywordAnswer covers common questions when nothing in the corpus matched.
func keywordAnswer(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "chemical spill"):
		return chemicalSpillAnswer
	case strings.Contains(q, "fire"), strings.Contains(q, "evacuation"):
		return fireAnswer
	case strings.Contains(q, "protective equipment"), strings.Contains(q, "ppe"):
		return ppeAnswer
	}
	return noResultsAnswer
}

func templateAnswer(results []*core.ScoredResult) string {
	components := make([]string, 0, len(results))
	for _, r := range results {
		switch r.Kind() {
		case core.KindProtocol:
			components = append(components, protocolComponent(r.Document))
		case core.KindIncident:
			components = append(components, incidentComponent(r.Document))
		}
	}
	return "Here's what I found:\n\n" + strings.Join(components, "\n\n---\n\n")
}

func protocolComponent(doc *core.Document) string {
	content := doc.Meta(core.MetaDescription)
	if content == "" {
		content = doc.Body
	}

	var protocols string
	if steps := doc.Meta(core.MetaProtocols); steps != "" {
		protocols = "\n- " + strings.Join(strings.Split(steps, "\n"), "\n- ")
	}

	return fmt.Sprintf("According to the Emergency Guidebook on %s:\n%s\n\nRecommended protocols:%s\n\nIn an emergency: %s",
		doc.Title, content, protocols, doc.Meta(core.MetaEmergencyResponse))
}

func incidentComponent(doc *core.Document) string {
	description := doc.Meta(core.MetaDescription)
	if description == "" {
		description = doc.Body
	}
	return fmt.Sprintf("Based on a similar incident (%s): %s\n%s\n\nResolution: %s",
		doc.ID, doc.Title, description, doc.Meta(core.MetaResolution))
}
