package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"GossipSearch/internal/domain"
	"GossipSearch/internal/ports"
)

// QdrantStore implements the vector store against a Qdrant server over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	metric      Metric
	timeout     time.Duration

	ensureOnce sync.Once
	ensureErr  error
}

var _ ports.VectorStore = (*QdrantStore)(nil)

// NewQdrant connects to a Qdrant instance. The collection is created on
// first upsert once the vector dimension is known.
func NewQdrant(host string, port int, collection string, metric Metric, timeout time.Duration) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant connect: %v", domain.ErrStoreUnavailable, err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		metric:      metric,
		timeout:     timeout,
	}, nil
}

// Upsert inserts or replaces points keyed by the article fingerprint.
// Qdrant replaces an existing point id wholesale, which gives us the
// replace-by-id semantics re-ingestion relies on.
func (s *QdrantStore) Upsert(ctx context.Context, entries []domain.StoredEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.ensureOnce.Do(func() {
		s.ensureErr = s.ensureCollection(ctx, len(entries[0].Vector))
	})
	if s.ensureErr != nil {
		return s.ensureErr
	}

	points := make([]*pb.PointStruct, len(entries))
	for i, entry := range entries {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: entry.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: entry.Vector}}},
			Payload: payloadFor(entry.Metadata),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.points.Upsert(callCtx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Query runs a similarity search and returns at most k matches, best first.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]domain.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.points.Search(callCtx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrStoreUnavailable, err)
	}

	matches := make([]domain.Match, len(resp.Result))
	for i, pt := range resp.Result {
		matches[i] = domain.Match{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Metadata: metadataFrom(pt.Payload),
		}
	}
	return matches, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dim int) error {
	distance := pb.Distance_Cosine
	if s.metric == MetricL2 {
		distance = pb.Distance_Euclid
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collections.Create(callCtx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: distance,
				},
			},
		},
	})
	if err != nil {
		// An existing collection with the same schema is fine.
		if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("%w: create collection: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func payloadFor(m domain.Metadata) map[string]*pb.Value {
	fields := map[string]string{
		"title":        m.Title,
		"author":       m.Author,
		"categories":   m.Categories,
		"description":  m.Description,
		"published_at": m.PublishedAt,
		"url":          m.URL,
		"source":       m.Source,
		"body_snippet": m.BodySnippet,
		"content_hash": m.ContentHash,
	}
	payload := make(map[string]*pb.Value, len(fields))
	for key, value := range fields {
		payload[key] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: value}}
	}
	return payload
}

func metadataFrom(payload map[string]*pb.Value) domain.Metadata {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	return domain.Metadata{
		Title:       get("title"),
		Author:      get("author"),
		Categories:  get("categories"),
		Description: get("description"),
		PublishedAt: get("published_at"),
		URL:         get("url"),
		Source:      get("source"),
		BodySnippet: get("body_snippet"),
		ContentHash: get("content_hash"),
	}
}
