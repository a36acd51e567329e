// Package findings publishes refresh outcomes to Elasticsearch so that
// discrepancies and red flags can be searched across deals.
package findings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/qualification"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const DefaultIndex = "qualification-findings"

// subjectNamespace seeds the name-based document ids.
var subjectNamespace = uuid.MustParse("6f1c9a52-3b7e-4d1a-9a0e-5c2f8d4b7e10")

// DocumentID is stable per subject, so re-indexing overwrites.
func DocumentID(subjectID string) string {
	return uuid.NewSHA1(subjectNamespace, []byte(subjectID)).String()
}

// Document is the indexed view of one subject's latest refresh.
type Document struct {
	SubjectID            string                    `json:"subjectId"`
	RunID                string                    `json:"runId"`
	Overall              int                       `json:"overallScore"`
	Level                string                    `json:"qualificationLevel"`
	Vector               qualification.ScoreVector `json:"scoreVector"`
	IsValid              bool                      `json:"isValid"`
	ValidationScore      int                       `json:"validationScore"`
	ValidationConfidence float64                   `json:"validationConfidence"`
	Discrepancies        []qualification.Finding   `json:"discrepancies"`
	RedFlags             []qualification.Finding   `json:"redFlags"`
	Recommendations      []string                  `json:"recommendations"`
	IndexedAt            time.Time                 `json:"indexedAt"`
}

// NewDocument flattens a refresh result.
func NewDocument(r *qualification.RefreshResult) Document {
	return Document{
		SubjectID:            r.SubjectID,
		RunID:                r.RunID,
		Overall:              r.Vector.Overall,
		Level:                r.Vector.Level(),
		Vector:               r.Vector,
		IsValid:              r.Validation.IsValid,
		ValidationScore:      r.Validation.Score,
		ValidationConfidence: r.Validation.Confidence,
		Discrepancies:        r.Validation.Discrepancies,
		RedFlags:             r.Validation.RedFlags,
		Recommendations:      r.Validation.Recommendations,
		IndexedAt:            r.ComputedAt,
	}
}

// Index writes Documents into one Elasticsearch index.
type Index struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndex(client *elasticsearch.Client, index string, log logger.Logger) *Index {
	if index == "" {
		index = DefaultIndex
	}
	return &Index{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "findings-index", "index": index}),
	}
}

// Put indexes the document under the subject's stable id. A nil *Index is a
// no-op.
func (i *Index) Put(ctx context.Context, doc Document) error {
	if i == nil {
		return nil
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewFindingsIndexFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: DocumentID(doc.SubjectID),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewFindingsIndexFailedError(err).WithMetadata("subjectId", doc.SubjectID)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewFindingsIndexFailedError(fmt.Errorf("index failed: %s", res.String())).
			WithMetadata("subjectId", doc.SubjectID)
	}

	i.logger.Debug("findings indexed", map[string]interface{}{
		"subjectId": doc.SubjectID,
		"runId":     doc.RunID,
	})
	return nil
}

// Query filters a findings search. Zero values match everything.
type Query struct {
	Code        string
	InvalidOnly bool
	MaxScore    int
	Size        int
}

// Search returns documents carrying a given finding code or verdict,
// lowest overall score first.
func (i *Index) Search(ctx context.Context, q Query) ([]Document, error) {
	var must []interface{}
	if q.Code != "" {
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"redFlags.code": q.Code}},
					map[string]interface{}{"term": map[string]interface{}{"discrepancies.code": q.Code}},
				},
				"minimum_should_match": 1,
			},
		})
	}
	if q.InvalidOnly {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"isValid": false}})
	}
	if q.MaxScore > 0 {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"overallScore": map[string]interface{}{"lte": q.MaxScore}},
		})
	}
	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	size := q.Size
	if size <= 0 {
		size = 20
	}
	body, _ := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
		"sort":  []interface{}{map[string]interface{}{"overallScore": "asc"}},
		"size":  size,
	})

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewFindingsIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewFindingsIndexFailedError(fmt.Errorf("search failed: %s", res.String()))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewFindingsIndexFailedError(err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for n, h := range r.Hits.Hits {
		docs[n] = h.Source
	}
	return docs, nil
}
