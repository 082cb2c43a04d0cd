package dispatch

import (
	"encoding/json"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

// fileRefNames extracts the filenames a submittable's document refers to.
//
// Assay data and analyses name their data files in a "files" array; other
// variants carry none.
func fileRefNames(s domain.Submittable) []string {
	if len(s.Document) == 0 {
		return nil
	}

	var doc struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}
	if err := json.Unmarshal(s.Document, &doc); err != nil {
		// the document is passed through opaquely; an unexpected shape just
		// means no file refs to enrich with.
		return nil
	}

	names := []string{}
	for _, f := range doc.Files {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}
