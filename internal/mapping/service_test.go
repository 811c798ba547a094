package mapping

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x99f/dualsync/internal/apperr"
	"github.com/0x99f/dualsync/internal/models"
	"github.com/0x99f/dualsync/internal/registry"
	"github.com/0x99f/dualsync/internal/storage/memory"
	"github.com/0x99f/dualsync/internal/txn"
)

// countingVector wraps the in-memory vector store and counts store calls; it
// can also be told to fail writes for one entity.
type countingVector struct {
	*memory.VectorStore
	calls      atomic.Int64
	failEntity string
}

func (c *countingVector) StoreChunks(
	ctx context.Context,
	items []models.ChunkData,
	projectID string,
) ([]string, error) {
	c.calls.Add(1)
	if c.failEntity != "" {
		for _, it := range items {
			if it.Metadata["entity_id"] == c.failEntity {
				return nil, errors.New("vector store rejected write")
			}
		}
	}
	return c.VectorStore.StoreChunks(ctx, items, projectID)
}

func (c *countingVector) DeleteChunks(ctx context.Context, ids []string) error {
	c.calls.Add(1)
	return c.VectorStore.DeleteChunks(ctx, ids)
}

func (c *countingVector) RestoreChunks(ctx context.Context, ids []string) error {
	c.calls.Add(1)
	return c.VectorStore.RestoreChunks(ctx, ids)
}

type countingGraph struct {
	*memory.GraphStore
	calls atomic.Int64
	fail  bool
}

func (c *countingGraph) StoreChunks(
	ctx context.Context,
	items []models.ChunkData,
	projectID string,
) ([]string, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("graph store down")
	}
	return c.GraphStore.StoreChunks(ctx, items, projectID)
}

func (c *countingGraph) DeleteNodes(ctx context.Context, ids []string) error {
	c.calls.Add(1)
	return c.GraphStore.DeleteNodes(ctx, ids)
}

func (c *countingGraph) RestoreNodes(ctx context.Context, ids []string) error {
	c.calls.Add(1)
	return c.GraphStore.RestoreNodes(ctx, ids)
}

type fixture struct {
	reg   *registry.Registry
	vec   *countingVector
	graph *countingGraph
	svc   *Service
}

func newFixture(opts ...Option) *fixture {
	reg := registry.New()
	vec := &countingVector{VectorStore: memory.NewVectorStore()}
	gr := &countingGraph{GraphStore: memory.NewGraphStore()}
	coord := txn.NewCoordinator(vec, gr, reg, slog.Default())
	return &fixture{
		reg:   reg,
		vec:   vec,
		graph: gr,
		svc:   NewService(reg, coord, slog.Default(), opts...),
	}
}

func chunk(content string) *models.ChunkData {
	return &models.ChunkData{Content: content}
}

func TestCreateEntityBothStores(t *testing.T) {
	f := newFixture()
	res, err := f.svc.CreateEntity(
		context.Background(), models.EntityFunction, "p1", chunk("func a"), chunk("node a"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.VectorID)
	assert.NotEmpty(t, res.GraphID)

	m, ok := f.reg.GetMapping(res.EntityID)
	require.True(t, ok)
	assert.Equal(t, models.StatusSynced, m.SyncStatus)

	_, live := f.vec.Get(res.VectorID)
	assert.True(t, live)
	_, live = f.graph.Get(res.GraphID)
	assert.True(t, live)
}

func TestCreateEntityVectorOnly(t *testing.T) {
	f := newFixture()
	res, err := f.svc.CreateEntity(
		context.Background(), models.EntityFile, "p1", chunk("file"), nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.GraphID)

	m, _ := f.reg.GetMapping(res.EntityID)
	assert.Equal(t, models.StatusVectorOnly, m.SyncStatus)
}

func TestCreateEntityGraphFailureCompensatesVector(t *testing.T) {
	f := newFixture()
	f.graph.fail = true

	res, err := f.svc.CreateEntity(
		context.Background(), models.EntityFunction, "p1", chunk("func"), chunk("node"))
	require.Error(t, err)
	assert.True(t, apperr.IsExecution(err))
	assert.False(t, res.Success)

	// the vector write was compensated: no live chunks remain
	ids, lerr := f.vec.ListIDs(context.Background(), "p1")
	require.NoError(t, lerr)
	assert.Empty(t, ids)

	// the mapping is left behind unsynced for the consistency checker
	m, ok := f.reg.GetMapping(res.EntityID)
	require.True(t, ok)
	assert.Equal(t, models.StatusConflict, m.SyncStatus)

	// the failure is on record
	hist := f.svc.GetOperationHistory(0)
	require.Len(t, hist, 1)
	assert.Equal(t, models.OpFailed, hist[0].Status)
	assert.NotEmpty(t, hist[0].Error)
}

func TestUpdateEntityNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateEntity(context.Background(), "ghost", chunk("x"), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateEntityKeepsOtherSide(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateEntity(
		context.Background(), models.EntityFunction, "p1", chunk("v1"), chunk("g1"))
	require.NoError(t, err)

	res, err := f.svc.UpdateEntity(context.Background(), created.EntityID, chunk("v2"), nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, created.GraphID, res.GraphID)

	got, live := f.vec.Get(res.VectorID)
	require.True(t, live)
	assert.Equal(t, "v2", got.Content)
}

func TestDeleteEntity(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateEntity(
		context.Background(), models.EntityFunction, "p1", chunk("v"), chunk("g"))
	require.NoError(t, err)

	res, err := f.svc.DeleteEntity(context.Background(), created.EntityID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, ok := f.reg.GetMapping(created.EntityID)
	assert.False(t, ok)
	_, live := f.vec.Get(created.VectorID)
	assert.False(t, live)
	_, live = f.graph.Get(created.GraphID)
	assert.False(t, live)
}

func TestDeleteEntityNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.DeleteEntity(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSyncEntityAlreadySyncedIsIdempotent(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateEntity(
		context.Background(), models.EntityFunction, "p1", chunk("v"), chunk("g"))
	require.NoError(t, err)

	before := f.vec.calls.Load() + f.graph.calls.Load()
	res, err := f.svc.SyncEntity(context.Background(), created.EntityID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, before, f.vec.calls.Load()+f.graph.calls.Load(),
		"synced entity must cause zero store calls")
}

func TestSyncEntityFillsMissingSide(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateEntity(
		context.Background(), models.EntityFunction, "p1", chunk("v"), nil)
	require.NoError(t, err)

	res, err := f.svc.SyncEntity(context.Background(), created.EntityID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.GraphID)
	assert.Equal(t, created.VectorID, res.VectorID)

	m, _ := f.reg.GetMapping(created.EntityID)
	assert.Equal(t, models.StatusSynced, m.SyncStatus)
}

func TestSyncEntityConflictWritesBothSides(t *testing.T) {
	f := newFixture()
	_, err := f.reg.CreateMapping("e_conflict", models.EntitySymbol, "p1", "", "")
	require.NoError(t, err)

	res, err := f.svc.SyncEntity(context.Background(), "e_conflict")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.VectorID)
	assert.NotEmpty(t, res.GraphID)
}

func TestSyncProjectPartialFailureIsolation(t *testing.T) {
	f := newFixture()
	// three graph_only mappings; make the vector store reject exactly one
	for _, id := range []string{"e1", "e2", "e3"} {
		_, err := f.reg.CreateMapping(id, models.EntitySymbol, "p1", "", "g_"+id)
		require.NoError(t, err)
	}
	f.vec.failEntity = "e2"

	results := f.svc.SyncProject(context.Background(), "p1")
	require.Len(t, results, 3)

	byEntity := map[string]models.SyncResult{}
	for _, r := range results {
		byEntity[r.EntityID] = r
	}
	assert.True(t, byEntity["e1"].Success)
	assert.True(t, byEntity["e3"].Success)
	assert.False(t, byEntity["e2"].Success)
	assert.NotEmpty(t, byEntity["e2"].Error)
}

func TestSyncProjectParallelMatchesInputOrder(t *testing.T) {
	f := newFixture(WithSyncWorkers(4))
	for _, id := range []string{"e1", "e2", "e3", "e4", "e5"} {
		_, err := f.reg.CreateMapping(id, models.EntitySymbol, "p1", "", "g_"+id)
		require.NoError(t, err)
	}
	results := f.svc.SyncProject(context.Background(), "p1")
	require.Len(t, results, 5)
	var got []string
	for _, r := range results {
		assert.True(t, r.Success)
		got = append(got, r.EntityID)
	}
	assert.ElementsMatch(t, []string{"e1", "e2", "e3", "e4", "e5"}, got)
}

func TestExecuteBatch(t *testing.T) {
	f := newFixture()
	batch := f.svc.CreateBatch("p1", []BatchOperation{
		{Type: models.OpCreate, EntityType: models.EntityFile, VectorData: chunk("a"), GraphData: chunk("a")},
		{Type: models.OpCreate, EntityType: models.EntityFile, VectorData: chunk("b"), GraphData: chunk("b")},
	})

	results, err := f.svc.ExecuteBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
	}
	got, ok := f.svc.GetBatch(batch.ID)
	require.True(t, ok)
	assert.Equal(t, models.BatchCompleted, got.Status)
}

func TestExecuteBatchOneFailureMarksBatchFailed(t *testing.T) {
	f := newFixture()
	batch := f.svc.CreateBatch("p1", []BatchOperation{
		{Type: models.OpCreate, EntityType: models.EntityFile, VectorData: chunk("a")},
		{Type: models.OpDelete, EntityID: "ghost"},
	})

	results, err := f.svc.ExecuteBatch(context.Background(), batch.ID)
	require.NoError(t, err, "batch APIs report per-item failures, not errors")
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)

	got, _ := f.svc.GetBatch(batch.ID)
	assert.Equal(t, models.BatchFailed, got.Status)
}

func TestExecuteBatchUnknown(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ExecuteBatch(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestPendingOperationsDrainToHistory(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateEntity(context.Background(), models.EntityFile, "p1", chunk("a"), nil)
	require.NoError(t, err)

	assert.Empty(t, f.svc.GetPendingOperations())
	hist := f.svc.GetOperationHistory(0)
	require.Len(t, hist, 1)
	assert.Equal(t, models.OpCompleted, hist[0].Status)
}
