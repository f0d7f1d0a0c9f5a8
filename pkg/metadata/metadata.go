// Package metadata converts a study's descriptive structure into the
// canonical JSON document that's mirrored next to its data.
package metadata

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/studymirror/pkg/catalog"
	"github.com/sidkik/studymirror/pkg/errors"
)

// TimestampLayout is the layout of Document.Timestamp: ISO-8601 with
// millisecond precision and an explicit offset.
const TimestampLayout = "2006-01-02T15:04:05.000-07:00"

// Document is the canonical metadata document of a study. Every field is
// always present in the encoded form, so consumers can parse all documents
// the same way.
type Document struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Timestamp string `json:"timestamp"`

	// Variables are keyed by variable ID. The catalog order isn't kept.
	Variables map[string]VariableDoc `json:"variables"`
}

// VariableDoc describes one variable of the study.
type VariableDoc struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Name       string        `json:"name"`
	Categories []CategoryDoc `json:"categories"`
}

// CategoryDoc describes one coded value of a variable.
type CategoryDoc struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// FromStudy builds the document for `study`. Variables are keyed by their
// identifier, so if the catalog repeats an identifier, the last variable wins.
func FromStudy(study catalog.Study) Document {
	doc := Document{
		ID:        study.ID,
		Label:     study.Label,
		Timestamp: FormatTimestamp(study.Timestamp),
		Variables: make(map[string]VariableDoc, len(study.Variables)),
	}

	for _, v := range study.Variables {
		if _, ok := doc.Variables[v.ID]; ok {
			log.WithFields(log.Fields{
				"study":    study.ID,
				"variable": v.ID,
			}).Warn("Catalog returned a duplicate variable. Keeping the last one.")
		}

		// Categories are never null so that the document shape doesn't
		// depend on the study.
		categories := make([]CategoryDoc, 0, len(v.Categories))
		for _, c := range v.Categories {
			categories = append(categories, CategoryDoc{
				ID:    c.ID,
				Label: c.Label,
				Value: c.Value,
			})
		}

		doc.Variables[v.ID] = VariableDoc{
			ID:         v.ID,
			Label:      v.Label,
			Name:       v.Name,
			Categories: categories,
		}
	}
	return doc
}

// Serialize returns the encoded metadata document for `study`.
func Serialize(study catalog.Study) ([]byte, error) {
	docBytes, err := json.Marshal(FromStudy(study))
	if err != nil {
		return nil, errors.SerializationError{Study: study.ID, Err: err}
	}
	return docBytes, nil
}

// Parse decodes a document created by Serialize.
func Parse(docBytes []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		return Document{}, errors.WithContext(err, "unmarshal")
	}
	return doc, nil
}

// FormatTimestamp renders `t` in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}
