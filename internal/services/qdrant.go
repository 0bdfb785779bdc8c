package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// TalentPoint is one embedded chunk of a CV.
type TalentPoint struct {
	CVID      uuid.UUID
	OwnerID   string
	Chunk     int
	Text      string
	Embedding []float32
}

type SearchResult struct {
	CVID  string
	Score float32
	Text  string
}

type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertPoints(ctx context.Context, points []TalentPoint) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, ownerID string, limit int) ([]SearchResult, error)
	DeleteCV(ctx context.Context, cvID uuid.UUID) error
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewQdrantService(urlStr, apiKey, collectionName string) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	// gRPC port unless the URL names one
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	zap.S().Named("qdrant").Infof("✅ Qdrant collection '%s' created", q.collectionName)
	return nil
}

// UpsertPoints implements QdrantService. Point IDs are derived from the CV ID
// and chunk number so re-indexing overwrites earlier points.
func (q *qdrantService) UpsertPoints(ctx context.Context, points []TalentPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		pointID := uuid.NewSHA1(p.CVID, []byte(strconv.Itoa(p.Chunk)))
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID.String()),
			Vectors: qdrant.NewVectors(p.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"cv_id":    p.CVID.String(),
				"owner_id": p.OwnerID,
				"chunk":    p.Chunk,
				"text":     p.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// SearchSimilar implements QdrantService.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, ownerID string, limit int) ([]SearchResult, error) {
	found, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("owner_id", ownerID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(found))
	for _, point := range found {
		results = append(results, SearchResult{
			CVID:  point.Payload["cv_id"].GetStringValue(),
			Score: point.Score,
			Text:  point.Payload["text"].GetStringValue(),
		})
	}
	return results, nil
}

// DeleteCV implements QdrantService.
func (q *qdrantService) DeleteCV(ctx context.Context, cvID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("cv_id", cvID.String()),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete cv points: %w", err)
	}
	return nil
}
