package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/cv-formatter/internal/models"
)

var ErrIndexDisabled = errors.New("talent search is not configured")

// TalentIndex keeps completed CVs searchable by meaning, per owner.
type TalentIndex interface {
	Enabled() bool
	IndexCV(ctx context.Context, cvID uuid.UUID, ownerID string, structuredCV []byte) error
	Search(ctx context.Context, ownerID, query string, limit int) ([]models.SearchHit, error)
	Remove(ctx context.Context, cvID uuid.UUID) error
}

// Embedder turns text into a vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type NoopTalentIndex struct{}

func (NoopTalentIndex) Enabled() bool { return false }

func (NoopTalentIndex) IndexCV(context.Context, uuid.UUID, string, []byte) error { return nil }

func (NoopTalentIndex) Search(context.Context, string, string, int) ([]models.SearchHit, error) {
	return nil, ErrIndexDisabled
}

func (NoopTalentIndex) Remove(context.Context, uuid.UUID) error { return nil }

const (
	indexChunkSize    = 800
	indexChunkOverlap = 100
)

type talentIndex struct {
	store    QdrantService
	embedder Embedder
	chunker  TextChunker
}

func NewTalentIndex(store QdrantService, embedder Embedder, chunker TextChunker) TalentIndex {
	return &talentIndex{store: store, embedder: embedder, chunker: chunker}
}

func (t *talentIndex) Enabled() bool { return true }

func (t *talentIndex) IndexCV(ctx context.Context, cvID uuid.UUID, ownerID string, structuredCV []byte) error {
	var cv models.StructuredCV
	if err := json.Unmarshal(structuredCV, &cv); err != nil {
		return fmt.Errorf("failed to decode structured cv: %w", err)
	}

	chunks := t.chunker.ChunkText(SearchableText(&cv), indexChunkSize, indexChunkOverlap)
	points := make([]TalentPoint, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := t.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		points = append(points, TalentPoint{
			CVID:      cvID,
			OwnerID:   ownerID,
			Chunk:     i,
			Text:      chunk,
			Embedding: embedding,
		})
	}

	// old chunks may outnumber the new ones
	if err := t.store.DeleteCV(ctx, cvID); err != nil {
		return err
	}
	return t.store.UpsertPoints(ctx, points)
}

func (t *talentIndex) Search(ctx context.Context, ownerID, query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	embedding, err := t.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := t.store.SearchSimilar(ctx, embedding, ownerID, limit*3)
	if err != nil {
		return nil, err
	}

	// results are score ordered; keep the best chunk per CV
	seen := make(map[string]bool, len(results))
	hits := make([]models.SearchHit, 0, limit)
	for _, r := range results {
		if seen[r.CVID] {
			continue
		}
		seen[r.CVID] = true
		hits = append(hits, models.SearchHit{CVID: r.CVID, Score: r.Score, Snippet: r.Text})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (t *talentIndex) Remove(ctx context.Context, cvID uuid.UUID) error {
	return t.store.DeleteCV(ctx, cvID)
}

// SearchableText flattens a structured CV into sections separated by blank lines.
func SearchableText(cv *models.StructuredCV) string {
	var sections []string

	header := strings.TrimSpace(cv.FullName + "\n" + cv.JobTitle + "\n" + cv.PersonalDetails.Location)
	if header != "" {
		sections = append(sections, header)
	}
	if cv.Profile != "" {
		sections = append(sections, cv.Profile)
	}

	for _, e := range cv.Experience {
		var b strings.Builder
		fmt.Fprintf(&b, "%s at %s", e.Role, e.Company)
		for _, bullet := range e.Bullets {
			b.WriteString("\n")
			b.WriteString(bullet)
		}
		sections = append(sections, b.String())
	}

	for _, ed := range cv.Education {
		sections = append(sections, fmt.Sprintf("%s, %s", ed.Program, ed.Institution))
	}

	if len(cv.Skills) > 0 {
		sections = append(sections, "Skills: "+strings.Join(cv.Skills, ", "))
	}
	if len(cv.PersonalDetails.Languages) > 0 {
		sections = append(sections, "Languages: "+strings.Join(cv.PersonalDetails.Languages, ", "))
	}

	return strings.Join(sections, "\n\n")
}

type TalentIndexConfig struct {
	QdrantURL      string
	QdrantAPIKey   string
	Collection     string
	GeminiAPIKey   string
	EmbeddingModel string
}

// BuildTalentIndex returns the Qdrant backed index, or a NoopTalentIndex when
// either Qdrant or Gemini is not configured.
func BuildTalentIndex(ctx context.Context, cfg TalentIndexConfig) (TalentIndex, error) {
	if cfg.QdrantURL == "" || cfg.GeminiAPIKey == "" {
		return NoopTalentIndex{}, nil
	}

	store, err := NewQdrantService(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.Collection)
	if err != nil {
		return nil, err
	}
	if err := store.InitCollection(ctx); err != nil {
		return nil, err
	}

	embedder, err := NewGeminiService(ctx, cfg.GeminiAPIKey, "", cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	return NewTalentIndex(store, embedder, NewTextChunker()), nil
}
