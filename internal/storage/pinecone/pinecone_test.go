// ABOUTME: Tests for the Pinecone backend using fake control and data planes
// ABOUTME: Covers existence checks, readiness polling, batching, filters, and metadata decoding
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/harper/vidchat/internal/logger"
	"github.com/harper/vidchat/internal/storage"
)

type fakeControl struct {
	indexes       []*pinecone.Index
	readyAfter    int
	describeCalls int
	createReq     *pinecone.CreateServerlessIndexRequest
	createErr     error
	deleteErr     error
	deleted       []string
}

func (f *fakeControl) ListIndexes(ctx context.Context) ([]*pinecone.Index, error) {
	return f.indexes, nil
}

func (f *fakeControl) CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createReq = in
	idx := &pinecone.Index{Name: in.Name, Host: in.Name + ".svc.pinecone.io"}
	f.indexes = append(f.indexes, idx)
	return idx, nil
}

func (f *fakeControl) DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error) {
	f.describeCalls++
	for _, idx := range f.indexes {
		if idx.Name == name {
			ready := f.describeCalls > f.readyAfter
			return &pinecone.Index{Name: name, Host: idx.Host, Status: &pinecone.IndexStatus{Ready: ready}}, nil
		}
	}
	return nil, errors.New("failed to describe index: 404 Not Found")
}

func (f *fakeControl) DeleteIndex(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeData struct {
	batches  [][]*pinecone.Vector
	lastReq  *pinecone.QueryByVectorValuesRequest
	response *pinecone.QueryVectorsResponse
	closed   bool
}

func (f *fakeData) UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
	f.batches = append(f.batches, in)
	return uint32(len(in)), nil
}

func (f *fakeData) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.lastReq = in
	if f.response == nil {
		return &pinecone.QueryVectorsResponse{}, nil
	}
	return f.response, nil
}

func (f *fakeData) Close() error {
	f.closed = true
	return nil
}

func newTestIndex(control *fakeControl, data *fakeData) (*Index, *[]string) {
	var hosts []string
	connect := func(host string) (dataPlane, error) {
		hosts = append(hosts, host)
		return data, nil
	}
	cfg := Config{IndexName: "youtube-transcripts", PollInterval: time.Millisecond, ReadyTimeout: time.Second}
	return newIndex(cfg, control, connect, logger.Nop()), &hosts
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{IndexName: "x"}, nil)
	assert.Error(t, err)
	_, err = New(Config{APIKey: "pc-test"}, nil)
	assert.Error(t, err)
}

func TestIndexExists(t *testing.T) {
	control := &fakeControl{indexes: []*pinecone.Index{{Name: "other"}}}
	idx, _ := newTestIndex(control, &fakeData{})

	exists, err := idx.IndexExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	control.indexes = append(control.indexes, &pinecone.Index{Name: "youtube-transcripts"})
	exists, err = idx.IndexExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateIndex_WaitsForReady(t *testing.T) {
	control := &fakeControl{readyAfter: 2}
	idx, _ := newTestIndex(control, &fakeData{})

	err := idx.CreateIndex(context.Background(), storage.Spec{
		Name:      "youtube-transcripts",
		Dimension: 1536,
		Metric:    storage.MetricCosine,
		Cloud:     "aws",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	require.NotNil(t, control.createReq)
	assert.Equal(t, "youtube-transcripts", control.createReq.Name)
	assert.EqualValues(t, 1536, control.createReq.Dimension)
	assert.Equal(t, pinecone.Cosine, control.createReq.Metric)
	assert.Equal(t, pinecone.Aws, control.createReq.Cloud)
	assert.Equal(t, "us-east-1", control.createReq.Region)
	assert.Equal(t, 3, control.describeCalls)
}

func TestCreateIndex_Conflict(t *testing.T) {
	control := &fakeControl{createErr: errors.New("409 Conflict: index already exists")}
	idx, _ := newTestIndex(control, &fakeData{})

	err := idx.CreateIndex(context.Background(), storage.Spec{Dimension: 3})
	assert.ErrorIs(t, err, storage.ErrIndexExists)
}

func TestCreateIndex_ReadyTimeout(t *testing.T) {
	control := &fakeControl{readyAfter: 1 << 30}
	idx, _ := newTestIndex(control, &fakeData{})
	idx.readyTimeout = 20 * time.Millisecond

	err := idx.CreateIndex(context.Background(), storage.Spec{Dimension: 3})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpsert_BatchesOf100(t *testing.T) {
	control := &fakeControl{indexes: []*pinecone.Index{{Name: "youtube-transcripts", Host: "h.pinecone.io"}}}
	data := &fakeData{}
	idx, hosts := newTestIndex(control, data)

	entries := make([]storage.Entry, 250)
	for i := range entries {
		entries[i] = storage.Entry{
			ID:       fmt.Sprintf("abc-%d", i),
			Vector:   []float32{float32(i)},
			Metadata: map[string]string{storage.MetaText: "t", storage.MetaVideoID: "abc"},
		}
	}

	require.NoError(t, idx.Upsert(context.Background(), entries))
	require.Len(t, data.batches, 3)
	assert.Len(t, data.batches[0], 100)
	assert.Len(t, data.batches[1], 100)
	assert.Len(t, data.batches[2], 50)
	assert.Equal(t, "abc-249", data.batches[2][49].Id)
	assert.Equal(t, "abc", data.batches[0][0].Metadata.AsMap()[storage.MetaVideoID])

	// Second call reuses the connection
	require.NoError(t, idx.Upsert(context.Background(), entries[:1]))
	assert.Equal(t, []string{"h.pinecone.io"}, *hosts)
}

func TestQuery_FilterAndDecode(t *testing.T) {
	control := &fakeControl{indexes: []*pinecone.Index{{Name: "youtube-transcripts", Host: "h"}}}
	meta, err := structpb.NewStruct(map[string]any{"text": "chunk text", "video_id": "abc"})
	require.NoError(t, err)
	data := &fakeData{response: &pinecone.QueryVectorsResponse{Matches: []*pinecone.ScoredVector{
		{Vector: &pinecone.Vector{Id: "abc-1", Metadata: meta}, Score: 0.91},
		nil,
	}}}
	idx, _ := newTestIndex(control, data)

	matches, err := idx.Query(context.Background(), storage.Query{
		Vector:          []float32{1, 2},
		TopK:            3,
		Filter:          map[string]string{storage.MetaVideoID: "abc"},
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "abc-1", matches[0].ID)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-6)
	assert.Equal(t, "chunk text", matches[0].Text())

	require.NotNil(t, data.lastReq)
	assert.EqualValues(t, 3, data.lastReq.TopK)
	assert.True(t, data.lastReq.IncludeMetadata)
	filter := data.lastReq.MetadataFilter.AsMap()
	assert.Equal(t, map[string]any{"$eq": "abc"}, filter[storage.MetaVideoID])
}

func TestQuery_MissingIndex(t *testing.T) {
	idx, _ := newTestIndex(&fakeControl{}, &fakeData{})

	_, err := idx.Query(context.Background(), storage.Query{Vector: []float32{1}, TopK: 1})
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)
}

func TestDeleteIndex(t *testing.T) {
	control := &fakeControl{indexes: []*pinecone.Index{{Name: "youtube-transcripts", Host: "h"}}}
	data := &fakeData{}
	idx, _ := newTestIndex(control, data)
	require.NoError(t, idx.Upsert(context.Background(), []storage.Entry{{ID: "a", Vector: []float32{1}}}))

	require.NoError(t, idx.DeleteIndex(context.Background()))
	assert.Equal(t, []string{"youtube-transcripts"}, control.deleted)
	assert.True(t, data.closed)

	control.deleteErr = errors.New("404 not found")
	assert.ErrorIs(t, idx.DeleteIndex(context.Background()), storage.ErrIndexNotFound)
}

func TestMetricAndCloudMapping(t *testing.T) {
	assert.Equal(t, pinecone.Dotproduct, toMetric(storage.MetricDotProduct))
	assert.Equal(t, pinecone.Euclidean, toMetric(storage.MetricEuclidean))
	assert.Equal(t, pinecone.Cosine, toMetric(""))
	assert.Equal(t, pinecone.Gcp, toCloud("GCP"))
	assert.Equal(t, pinecone.Azure, toCloud("azure"))
	assert.Equal(t, pinecone.Aws, toCloud(""))
}
