// Package index pushes annotations into a Meilisearch full-text index.
package index

import (
	"context"
	"fmt"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/and161185/annotator/internal/model"
)

const idxAnnotations = "annotations"

// Record is the indexed form of an annotation.
type Record struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	URI       string   `json:"uri"`
	Group     string   `json:"group"`
	Authority string   `json:"authority"`
	Owner     string   `json:"owner"`
	Shared    bool     `json:"shared"`
	Status    string   `json:"status"`
}

// NewRecord flattens an annotation for indexing.
func NewRecord(a *model.Annotation) Record {
	tags := a.TagNames()
	return Record{
		ID:        a.ID,
		Text:      a.Text,
		Tags:      tags,
		URI:       a.Metadata.Document.URI,
		Group:     a.Group().Name,
		Authority: a.Metadata.Authority,
		Owner:     a.Owner.Login,
		Shared:    a.Shared,
		Status:    a.Status.String(),
	}
}

// Meili implements the service indexer via Meilisearch.
type Meili struct {
	client meili.ServiceManager
}

// NewMeili creates a Meilisearch client for url.
func NewMeili(url, apiKey string) *Meili {
	return &Meili{client: meili.New(url, meili.WithAPIKey(apiKey))}
}

// Index adds or replaces the annotation document.
func (m *Meili) Index(ctx context.Context, a *model.Annotation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.client.Index(idxAnnotations).AddDocumentsWithContext(ctx, []Record{NewRecord(a)}, nil); err != nil {
		return fmt.Errorf("index annotation %s: %w", a.ID, err)
	}
	return nil
}

// Remove deletes the annotation document.
func (m *Meili) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.client.Index(idxAnnotations).DeleteDocumentWithContext(ctx, id, nil); err != nil {
		return fmt.Errorf("unindex annotation %s: %w", id, err)
	}
	return nil
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	_, err := m.client.Health()
	return err == nil
}
