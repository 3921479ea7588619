package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/staybook/internal/stream"
	"go.uber.org/zap"
)

type testItem struct {
	ID    string
	Title string
	Owner string
}

func (item testItem) ResourceID() string {
	return item.ID
}

func (item testItem) WithResourceID(id string) testItem {
	item.ID = id
	return item
}

type testDocument struct {
	Title string `json:"title"`
	Owner string `json:"owner"`
}

type testCodec struct{}

func (testCodec) Encode(item testItem) (json.RawMessage, error) {
	return json.Marshal(testDocument{Title: item.Title, Owner: item.Owner})
}

func (testCodec) Decode(id string, document json.RawMessage) (testItem, error) {
	var decoded testDocument
	if err := json.Unmarshal(document, &decoded); err != nil {
		return testItem{}, err
	}
	if decoded.Title == "" {
		return testItem{}, errors.New("title missing")
	}
	return testItem{ID: id, Title: decoded.Title, Owner: decoded.Owner}, nil
}

var errRemoteUnavailable = errors.New("remote unavailable")

type fakeGateway struct {
	documents map[string]json.RawMessage
	nextID    int
	failures  map[string]error
	calls     map[string]int
	created   []json.RawMessage
	onReplace func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		documents: make(map[string]json.RawMessage),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (g *fakeGateway) seed(t *testing.T, id, title string) {
	t.Helper()
	document, err := json.Marshal(testDocument{Title: title, Owner: "owner-1"})
	if err != nil {
		t.Fatalf("failed to encode seed document: %v", err)
	}
	g.documents[id] = document
}

func (g *fakeGateway) FetchCollection(context.Context) (map[string]json.RawMessage, error) {
	g.calls["fetch_collection"]++
	if err := g.failures["fetch_collection"]; err != nil {
		return nil, err
	}
	copied := make(map[string]json.RawMessage, len(g.documents))
	for id, document := range g.documents {
		copied[id] = document
	}
	return copied, nil
}

func (g *fakeGateway) FetchOne(_ context.Context, id string) (json.RawMessage, error) {
	g.calls["fetch_one"]++
	if err := g.failures["fetch_one"]; err != nil {
		return nil, err
	}
	document, ok := g.documents[id]
	if !ok {
		return json.RawMessage("null"), nil
	}
	return document, nil
}

func (g *fakeGateway) Create(_ context.Context, document json.RawMessage) (string, error) {
	g.calls["create"]++
	if err := g.failures["create"]; err != nil {
		return "", err
	}
	g.nextID++
	id := fmt.Sprintf("remote-%03d", g.nextID)
	g.documents[id] = document
	g.created = append(g.created, document)
	return id, nil
}

func (g *fakeGateway) ReplaceOne(_ context.Context, id string, document json.RawMessage) error {
	g.calls["replace_one"]++
	if err := g.failures["replace_one"]; err != nil {
		return err
	}
	if g.onReplace != nil {
		g.onReplace()
	}
	g.documents[id] = document
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, id string) error {
	g.calls["delete"]++
	if err := g.failures["delete"]; err != nil {
		return err
	}
	delete(g.documents, id)
	return nil
}

func newTestPipeline(t *testing.T, gateway *fakeGateway) *Pipeline[testItem] {
	t.Helper()
	pipeline, err := NewPipeline(PipelineConfig[testItem]{
		Collection: "items",
		Cache:      stream.NewCache[testItem](),
		Gateway:    gateway,
		Codec:      testCodec{},
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return pipeline
}

func buildItem(title string) func(string) (testItem, error) {
	return func(placeholderID string) (testItem, error) {
		return testItem{ID: placeholderID, Title: title, Owner: "owner-1"}, nil
	}
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	testCases := []struct {
		name     string
		config   PipelineConfig[testItem]
		wantCode string
	}{
		{
			name:     "missing-cache",
			config:   PipelineConfig[testItem]{Collection: "items", Gateway: newFakeGateway(), Codec: testCodec{}},
			wantCode: "items.pipeline.new.missing_cache",
		},
		{
			name:     "missing-gateway",
			config:   PipelineConfig[testItem]{Collection: "items", Cache: stream.NewCache[testItem](), Codec: testCodec{}},
			wantCode: "items.pipeline.new.missing_gateway",
		},
		{
			name:     "missing-codec",
			config:   PipelineConfig[testItem]{Collection: "items", Cache: stream.NewCache[testItem](), Gateway: newFakeGateway()},
			wantCode: "items.pipeline.new.missing_codec",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := NewPipeline(testCase.config)
			var pipelineErr *PipelineError
			if !errors.As(err, &pipelineErr) {
				t.Fatalf("expected pipeline error, got %v", err)
			}
			if pipelineErr.Code() != testCase.wantCode {
				t.Fatalf("unexpected code %s", pipelineErr.Code())
			}
		})
	}
}

func TestPipelineAddAssignsRemoteIdentifiers(t *testing.T) {
	gateway := newFakeGateway()
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		if _, err := pipeline.Add(ctx, buildItem(title)); err != nil {
			t.Fatalf("unexpected add error: %v", err)
		}
	}

	snapshot := pipeline.Cache().Snapshot()
	if len(snapshot) != len(titles) {
		t.Fatalf("expected %d resources, got %d", len(titles), len(snapshot))
	}
	for index, item := range snapshot {
		expectedID := fmt.Sprintf("remote-%03d", index+1)
		if item.ID != expectedID {
			t.Fatalf("expected id %s, got %s", expectedID, item.ID)
		}
		if IsPlaceholder(item.ID) {
			t.Fatalf("placeholder id leaked into snapshot: %s", item.ID)
		}
		if item.Title != titles[index] {
			t.Fatalf("expected append order, got %s at %d", item.Title, index)
		}
	}
	for _, document := range gateway.created {
		if strings.Contains(string(document), PlaceholderPrefix) {
			t.Fatalf("placeholder id was sent to the remote store: %s", document)
		}
	}
}

func TestPipelineAddFailureLeavesSnapshotUntouched(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "a", "existing")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()

	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}

	deliveries := 0
	subscription := pipeline.Cache().Subscribe(func([]testItem) { deliveries++ })
	defer subscription.Release()

	gateway.failures["create"] = errRemoteUnavailable
	_, err := pipeline.Add(ctx, buildItem("doomed"))
	if !errors.Is(err, errRemoteUnavailable) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	var pipelineErr *PipelineError
	if !errors.As(err, &pipelineErr) || pipelineErr.Code() != "items.add.remote_failed" {
		t.Fatalf("unexpected error code: %v", err)
	}

	snapshot := pipeline.Cache().Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != "a" {
		t.Fatalf("expected snapshot to remain unchanged, got %#v", snapshot)
	}
	if deliveries != 1 {
		t.Fatalf("expected no publish after failure, got %d deliveries", deliveries)
	}
}

func TestPipelineFetchAllSkipsUndecodableEntries(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "b", "beta")
	gateway.seed(t, "a", "alpha")
	gateway.documents["broken"] = json.RawMessage(`{"title":""}`)
	gateway.documents["garbage"] = json.RawMessage(`[1,2`)
	gateway.documents["tombstone"] = json.RawMessage(`null`)
	pipeline := newTestPipeline(t, gateway)

	fetched, err := pipeline.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("expected 2 decoded resources, got %#v", fetched)
	}
	if fetched[0].ID != "a" || fetched[1].ID != "b" {
		t.Fatalf("expected key order, got %#v", fetched)
	}
	if snapshot := pipeline.Cache().Snapshot(); len(snapshot) != 2 {
		t.Fatalf("expected fetched resources to replace the snapshot, got %#v", snapshot)
	}
}

func TestPipelineFetchAllReplacesRatherThanMerges(t *testing.T) {
	gateway := newFakeGateway()
	pipeline := newTestPipeline(t, gateway)
	pipeline.Cache().Replace([]testItem{{ID: "stale", Title: "stale"}})
	gateway.seed(t, "fresh", "fresh")

	if _, err := pipeline.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	snapshot := pipeline.Cache().Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != "fresh" {
		t.Fatalf("expected full replace, got %#v", snapshot)
	}
}

func TestPipelineFetchAllFailureKeepsLastGoodSnapshot(t *testing.T) {
	gateway := newFakeGateway()
	pipeline := newTestPipeline(t, gateway)
	pipeline.Cache().Replace([]testItem{{ID: "kept", Title: "kept"}})
	gateway.failures["fetch_collection"] = errRemoteUnavailable

	if _, err := pipeline.FetchAll(context.Background()); !errors.Is(err, errRemoteUnavailable) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	snapshot := pipeline.Cache().Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != "kept" {
		t.Fatalf("expected last good snapshot, got %#v", snapshot)
	}
}

func TestPipelineFetchOneMatchesFetchAll(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "a", "alpha")
	gateway.seed(t, "b", "beta")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()

	fetched, err := pipeline.FetchAll(ctx)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}

	deliveries := 0
	subscription := pipeline.Cache().Subscribe(func([]testItem) { deliveries++ })
	defer subscription.Release()

	for _, item := range fetched {
		single, err := pipeline.FetchOne(ctx, item.ID)
		if err != nil {
			t.Fatalf("unexpected fetch one error: %v", err)
		}
		if single != item {
			t.Fatalf("round trip mismatch: %#v vs %#v", single, item)
		}
	}
	if deliveries != 1 {
		t.Fatalf("fetch one must not publish, got %d deliveries", deliveries)
	}
}

func TestPipelineFetchOneReportsMissingDocument(t *testing.T) {
	pipeline := newTestPipeline(t, newFakeGateway())

	_, err := pipeline.FetchOne(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPipelineUpdatePreservesPosition(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "1", "A")
	gateway.seed(t, "2", "B")
	gateway.seed(t, "3", "C")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()

	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}

	updated, found, err := pipeline.Update(ctx, "2", func(current testItem) (testItem, error) {
		current.Title = "X"
		return current, nil
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if !found {
		t.Fatalf("expected resource to be found")
	}
	if updated.ID != "2" || updated.Title != "X" || updated.Owner != "owner-1" {
		t.Fatalf("unexpected updated resource %#v", updated)
	}

	snapshot := pipeline.Cache().Snapshot()
	expected := []testItem{
		{ID: "1", Title: "A", Owner: "owner-1"},
		{ID: "2", Title: "X", Owner: "owner-1"},
		{ID: "3", Title: "C", Owner: "owner-1"},
	}
	if len(snapshot) != len(expected) {
		t.Fatalf("update changed snapshot length: %#v", snapshot)
	}
	for index := range expected {
		if snapshot[index] != expected[index] {
			t.Fatalf("unexpected element at %d: %#v", index, snapshot[index])
		}
	}
	if !strings.Contains(string(gateway.documents["2"]), `"title":"X"`) {
		t.Fatalf("expected full replacement document remotely, got %s", gateway.documents["2"])
	}
}

func TestPipelineUpdateKeepsWritesLandedDuringRemoteCall(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "1", "A")
	gateway.seed(t, "2", "B")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()

	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	gateway.onReplace = func() {
		current := pipeline.Cache().Snapshot()
		pipeline.Cache().Replace(append(current[1:], testItem{ID: "3", Title: "C", Owner: "owner-1"}))
	}

	_, found, err := pipeline.Update(ctx, "2", func(current testItem) (testItem, error) {
		current.Title = "X"
		return current, nil
	})
	if err != nil || !found {
		t.Fatalf("unexpected update result found=%v err=%v", found, err)
	}

	snapshot := pipeline.Cache().Snapshot()
	expected := []testItem{
		{ID: "2", Title: "X", Owner: "owner-1"},
		{ID: "3", Title: "C", Owner: "owner-1"},
	}
	if len(snapshot) != len(expected) {
		t.Fatalf("expected concurrent removal and add to survive, got %#v", snapshot)
	}
	for index := range expected {
		if snapshot[index] != expected[index] {
			t.Fatalf("unexpected element at %d: %#v", index, snapshot[index])
		}
	}
}

func TestPipelineUpdateFetchesWhenSnapshotEmpty(t *testing.T) {
	testCases := []struct {
		name        string
		seedID      string
		wantFound   bool
		wantReplace int
	}{
		{name: "present-after-fetch", seedID: "7", wantFound: true, wantReplace: 1},
		{name: "absent-after-fetch", seedID: "8", wantFound: false, wantReplace: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			gateway := newFakeGateway()
			gateway.seed(t, testCase.seedID, "remote")
			pipeline := newTestPipeline(t, gateway)

			_, found, err := pipeline.Update(context.Background(), "7", func(current testItem) (testItem, error) {
				current.Title = "revised"
				return current, nil
			})
			if err != nil {
				t.Fatalf("unexpected update error: %v", err)
			}
			if found != testCase.wantFound {
				t.Fatalf("found mismatch, want %v got %v", testCase.wantFound, found)
			}
			if gateway.calls["fetch_collection"] != 1 {
				t.Fatalf("expected a fetch-all before update, got %d", gateway.calls["fetch_collection"])
			}
			if gateway.calls["replace_one"] != testCase.wantReplace {
				t.Fatalf("expected %d remote replacements, got %d", testCase.wantReplace, gateway.calls["replace_one"])
			}
			if len(pipeline.Cache().Snapshot()) != 1 {
				t.Fatalf("expected fetched snapshot to be installed")
			}
		})
	}
}

func TestPipelineUpdateFailureLeavesSnapshotUntouched(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "1", "A")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()
	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	gateway.failures["replace_one"] = errRemoteUnavailable

	_, _, err := pipeline.Update(ctx, "1", func(current testItem) (testItem, error) {
		current.Title = "never"
		return current, nil
	})
	if !errors.Is(err, errRemoteUnavailable) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if snapshot := pipeline.Cache().Snapshot(); snapshot[0].Title != "A" {
		t.Fatalf("expected snapshot to be untouched, got %#v", snapshot)
	}
}

func TestPipelineRemoveDropsResource(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "1", "A")
	gateway.seed(t, "2", "B")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()
	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}

	if err := pipeline.Remove(ctx, "1"); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	snapshot := pipeline.Cache().Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != "2" {
		t.Fatalf("unexpected snapshot after remove %#v", snapshot)
	}
	if _, ok := gateway.documents["1"]; ok {
		t.Fatalf("expected remote document to be deleted")
	}
}

func TestPipelineRemoveUnknownIsNoOp(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "1", "A")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()
	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}

	deliveries := 0
	subscription := pipeline.Cache().Subscribe(func([]testItem) { deliveries++ })
	defer subscription.Release()

	if err := pipeline.Remove(ctx, "missing"); err != nil {
		t.Fatalf("expected removal of unknown id to succeed, got %v", err)
	}
	if gateway.calls["delete"] != 1 {
		t.Fatalf("expected remote delete call")
	}
	if snapshot := pipeline.Cache().Snapshot(); len(snapshot) != 1 {
		t.Fatalf("expected unchanged snapshot, got %#v", snapshot)
	}
	if deliveries != 1 {
		t.Fatalf("expected no publish, got %d deliveries", deliveries)
	}
}

func TestPipelineRemoveRejectsDuplicateIdentifiers(t *testing.T) {
	gateway := newFakeGateway()
	pipeline := newTestPipeline(t, gateway)
	corrupted := []testItem{{ID: "1", Title: "A"}, {ID: "1", Title: "A again"}}
	pipeline.Cache().Replace(corrupted)

	err := pipeline.Remove(context.Background(), "1")
	if !errors.Is(err, ErrDuplicateResource) {
		t.Fatalf("expected duplicate resource error, got %v", err)
	}
	if snapshot := pipeline.Cache().Snapshot(); len(snapshot) != 2 {
		t.Fatalf("expected snapshot untouched on invariant violation, got %#v", snapshot)
	}
}

func TestPipelineRemoveFailureLeavesSnapshotUntouched(t *testing.T) {
	gateway := newFakeGateway()
	gateway.seed(t, "1", "A")
	pipeline := newTestPipeline(t, gateway)
	ctx := context.Background()
	if _, err := pipeline.FetchAll(ctx); err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	gateway.failures["delete"] = errRemoteUnavailable

	if err := pipeline.Remove(ctx, "1"); !errors.Is(err, errRemoteUnavailable) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if snapshot := pipeline.Cache().Snapshot(); len(snapshot) != 1 {
		t.Fatalf("expected snapshot untouched, got %#v", snapshot)
	}
}

func TestMergeHelpersDoNotMutateInput(t *testing.T) {
	original := []testItem{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}
	input := append([]testItem(nil), original...)

	appended := appendResource(input, testItem{ID: "3", Title: "C"})
	replaced, ok, err := replaceResource(input, testItem{ID: "1", Title: "Z"})
	if err != nil || !ok {
		t.Fatalf("unexpected replace result ok=%v err=%v", ok, err)
	}
	removed, ok, err := removeResource(input, "2")
	if err != nil || !ok {
		t.Fatalf("unexpected remove result ok=%v err=%v", ok, err)
	}

	for index := range original {
		if input[index] != original[index] {
			t.Fatalf("input mutated at %d: %#v", index, input[index])
		}
	}
	if len(appended) != 3 || replaced[0].Title != "Z" || len(removed) != 1 {
		t.Fatalf("unexpected merge results: %#v %#v %#v", appended, replaced, removed)
	}
}
