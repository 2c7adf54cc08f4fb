// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/safetyrag/core"
)

// SourceStatic marks documents loaded from the bundled JSON files.
const SourceStatic = "static"

// Static is the corpus loaded from disk.
type Static struct {
	Documents []*core.Document // Protocols first, then incidents, each in file order
	Standards *core.Standards
}

type guidebookFile struct {
	HazardousMaterials []guidebookEntry `json:"hazardous_materials"`
}

type guidebookEntry struct {
	ID                flexString `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Protocols         []string   `json:"protocols"`
	EmergencyResponse string     `json:"emergency_response"`
	Category          string     `json:"category"`
}

type incidentsFile struct {
	Incidents         []incidentEntry `json:"incidents"`
	IndustryStandards struct {
		AverageResponseTimes map[string]float64 `json:"average_response_times"`
	} `json:"industry_standards"`
}

type incidentEntry struct {
	ID                  flexString `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Resolution          string     `json:"resolution"`
	Severity            flexString `json:"severity"`
	HazardType          string     `json:"hazard_type"`
	Date                string     `json:"date"`
	Location            string     `json:"location"`
	ResponseTimeMinutes flexString `json:"response_time_minutes"`
}

// flexString accepts a JSON string or number. Corpus files are hand edited
// and ids and severities show up as both.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// LoadGuidebook decodes hazard protocols from the emergency guidebook.
// Entries without an id are numbered static-1, static-2, ... by position.
func LoadGuidebook(r io.Reader) ([]*core.Document, error) {
	var file guidebookFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: guidebook: %w", ErrMalformedCorpus, err)
	}

	docs := make([]*core.Document, 0, len(file.HazardousMaterials))
	for i, entry := range file.HazardousMaterials {
		id := strings.TrimSpace(string(entry.ID))
		if id == "" {
			id = "static-" + strconv.Itoa(i+1)
		}

		body := entry.Description
		if len(entry.Protocols) > 0 {
			body += " " + strings.Join(entry.Protocols, " ")
		}

		metadata := map[string]string{
			core.MetaDescription:       entry.Description,
			core.MetaProtocols:         strings.Join(entry.Protocols, "\n"),
			core.MetaEmergencyResponse: entry.EmergencyResponse,
			core.MetaSource:            SourceStatic,
		}
		if entry.Category != "" {
			metadata[core.MetaCategory] = entry.Category
		}

		docs = append(docs, &core.Document{
			ID:       id,
			Kind:     core.KindProtocol,
			Title:    entry.Name,
			Body:     body,
			Metadata: metadata,
		})
	}
	return docs, nil
}

// LoadIncidents decodes incident reports and the industry response-time standards.
func LoadIncidents(r io.Reader) ([]*core.Document, *core.Standards, error) {
	var file incidentsFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("%w: incidents: %w", ErrMalformedCorpus, err)
	}

	docs := make([]*core.Document, 0, len(file.Incidents))
	for i, entry := range file.Incidents {
		id := strings.TrimSpace(string(entry.ID))
		if id == "" {
			return nil, nil, fmt.Errorf("%w: incident %d has no id", ErrMalformedCorpus, i+1)
		}

		body := entry.Description
		if entry.Resolution != "" {
			body += " " + entry.Resolution
		}

		metadata := map[string]string{
			core.MetaDescription: entry.Description,
			core.MetaResolution:  entry.Resolution,
			core.MetaSource:      SourceStatic,
		}
		setIfPresent(metadata, core.MetaSeverity, string(entry.Severity))
		setIfPresent(metadata, core.MetaHazardType, entry.HazardType)
		setIfPresent(metadata, core.MetaDate, entry.Date)
		setIfPresent(metadata, core.MetaLocation, entry.Location)
		setIfPresent(metadata, core.MetaResponseTimeMinutes, string(entry.ResponseTimeMinutes))

		docs = append(docs, &core.Document{
			ID:       id,
			Kind:     core.KindIncident,
			Title:    entry.Title,
			Body:     body,
			Metadata: metadata,
		})
	}

	standards := &core.Standards{
		AverageResponseMinutes: file.IndustryStandards.AverageResponseTimes,
	}
	if standards.AverageResponseMinutes == nil {
		standards.AverageResponseMinutes = map[string]float64{}
	}
	return docs, standards, nil
}

// LoadFiles reads both corpus files. Either path may be empty to skip it.
func LoadFiles(guidebookPath, incidentsPath string) (*Static, error) {
	static := &Static{
		Standards: &core.Standards{AverageResponseMinutes: map[string]float64{}},
	}

	if guidebookPath != "" {
		f, err := os.Open(guidebookPath)
		if err != nil {
			return nil, err
		}
		docs, err := LoadGuidebook(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", guidebookPath, err)
		}
		static.Documents = append(static.Documents, docs...)
	}

	if incidentsPath != "" {
		f, err := os.Open(incidentsPath)
		if err != nil {
			return nil, err
		}
		docs, standards, err := LoadIncidents(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", incidentsPath, err)
		}
		static.Documents = append(static.Documents, docs...)
		static.Standards = standards
	}

	return static, nil
}

func setIfPresent(m map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}
