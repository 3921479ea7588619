// Package resource implements the request/cache-merge pipelines that keep a
// stream.Cache consistent with a remote document collection.
package resource

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/staybook/internal/stream"
	"go.uber.org/zap"
)

const (
	opNew      = "pipeline.new"
	opFetchAll = "fetch_all"
	opFetchOne = "fetch_one"
	opAdd      = "add"
	opUpdate   = "update"
	opRemove   = "remove"

	reasonRemoteFailed = "remote_failed"
	reasonDecodeFailed = "decode_failed"
	reasonEncodeFailed = "encode_failed"
	reasonDuplicate    = "duplicate_resource"
	reasonNotFound     = "not_found"
)

// Resource is an immutable-by-convention collection item.
type Resource[R any] interface {
	ResourceID() string
	WithResourceID(id string) R
}

// Codec translates between resources and wire documents. Encoded documents never carry the identifier;
// the identifier is the document's key in the collection.
type Codec[R any] interface {
	Encode(item R) (json.RawMessage, error)
	Decode(id string, document json.RawMessage) (R, error)
}

// Gateway is the remote accessor for one document collection.
type Gateway interface {
	FetchCollection(ctx context.Context) (map[string]json.RawMessage, error)
	FetchOne(ctx context.Context, id string) (json.RawMessage, error)
	Create(ctx context.Context, document json.RawMessage) (string, error)
	ReplaceOne(ctx context.Context, id string, document json.RawMessage) error
	Delete(ctx context.Context, id string) error
}

// PipelineConfig describes the collaborators of a Pipeline.
type PipelineConfig[R Resource[R]] struct {
	Collection   string
	Cache        *stream.Cache[R]
	Gateway      Gateway
	Codec        Codec[R]
	Placeholders PlaceholderSource
	Logger       *zap.Logger
}

// Pipeline runs the remote-call, single-read, merge, publish sequence for each operation.
// Pipelines started concurrently are not serialized; the last one to publish wins.
type Pipeline[R Resource[R]] struct {
	collection   string
	cache        *stream.Cache[R]
	gateway      Gateway
	codec        Codec[R]
	placeholders PlaceholderSource
	logger       *zap.Logger
}

// NewPipeline validates the configuration and returns a Pipeline.
func NewPipeline[R Resource[R]](cfg PipelineConfig[R]) (*Pipeline[R], error) {
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = "resource"
	}
	if cfg.Cache == nil {
		return nil, newPipelineError(collection, opNew, "missing_cache", errMissingCache)
	}
	if cfg.Gateway == nil {
		return nil, newPipelineError(collection, opNew, "missing_gateway", errMissingGateway)
	}
	if cfg.Codec == nil {
		return nil, newPipelineError(collection, opNew, "missing_codec", errMissingCodec)
	}

	placeholders := cfg.Placeholders
	if placeholders == nil {
		placeholders = NewULIDPlaceholders()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline[R]{
		collection:   collection,
		cache:        cfg.Cache,
		gateway:      cfg.Gateway,
		codec:        cfg.Codec,
		placeholders: placeholders,
		logger:       logger,
	}, nil
}

// Cache exposes the snapshot cache the pipeline publishes to.
func (p *Pipeline[R]) Cache() *stream.Cache[R] {
	return p.cache
}

// FetchAll replaces the snapshot with the full remote collection. Entries that fail to decode are skipped.
func (p *Pipeline[R]) FetchAll(ctx context.Context) ([]R, error) {
	documents, err := p.gateway.FetchCollection(ctx)
	if err != nil {
		p.logError(opFetchAll, reasonRemoteFailed, err)
		return nil, newPipelineError(p.collection, opFetchAll, reasonRemoteFailed, err)
	}

	fetched := p.decodeCollection(documents)
	p.cache.Replace(fetched)
	p.logger.Debug("collection fetched",
		zap.String("collection", p.collection),
		zap.Int("documents", len(documents)),
		zap.Int("resources", len(fetched)))
	return fetched, nil
}

// FetchOne reads a single document. The snapshot is not touched.
func (p *Pipeline[R]) FetchOne(ctx context.Context, id string) (R, error) {
	var zero R
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, newPipelineError(p.collection, opFetchOne, "missing_id", errMissingID)
	}

	document, err := p.gateway.FetchOne(ctx, id)
	if err != nil {
		p.logError(opFetchOne, reasonRemoteFailed, err, zap.String("id", id))
		return zero, newPipelineError(p.collection, opFetchOne, reasonRemoteFailed, err)
	}
	if isNullDocument(document) {
		return zero, newPipelineError(p.collection, opFetchOne, reasonNotFound, ErrNotFound)
	}

	item, err := p.codec.Decode(id, document)
	if err != nil {
		p.logError(opFetchOne, reasonDecodeFailed, err, zap.String("id", id))
		return zero, newPipelineError(p.collection, opFetchOne, reasonDecodeFailed, err)
	}
	return item, nil
}

// Add builds a resource under a placeholder identifier, creates it remotely and appends
// the resource, now carrying the remote identifier, to the snapshot.
func (p *Pipeline[R]) Add(ctx context.Context, build func(placeholderID string) (R, error)) (R, error) {
	var zero R
	if build == nil {
		return zero, newPipelineError(p.collection, opAdd, "missing_builder", errMissingBuilder)
	}

	placeholderID := p.placeholders.NewPlaceholder()
	draft, err := build(placeholderID)
	if err != nil {
		return zero, newPipelineError(p.collection, opAdd, "build_failed", err)
	}

	document, err := p.codec.Encode(draft)
	if err != nil {
		p.logError(opAdd, reasonEncodeFailed, err)
		return zero, newPipelineError(p.collection, opAdd, reasonEncodeFailed, err)
	}

	remoteID, err := p.gateway.Create(ctx, document)
	if err != nil {
		p.logError(opAdd, reasonRemoteFailed, err)
		return zero, newPipelineError(p.collection, opAdd, reasonRemoteFailed, err)
	}
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		p.logError(opAdd, "empty_remote_id", errEmptyRemoteID)
		return zero, newPipelineError(p.collection, opAdd, "empty_remote_id", errEmptyRemoteID)
	}

	created := draft.WithResourceID(remoteID)
	current := p.cache.Snapshot()
	p.cache.Replace(appendResource(current, created))
	p.logger.Debug("resource added",
		zap.String("collection", p.collection),
		zap.String("id", remoteID),
		zap.String("placeholder_id", placeholderID))
	return created, nil
}

// Update revises the resource identified by id and writes the full replacement remotely.
// An empty snapshot is populated with FetchAll first. When id is unknown nothing is written
// and Update reports (zero, false, nil).
func (p *Pipeline[R]) Update(ctx context.Context, id string, revise func(current R) (R, error)) (R, bool, error) {
	var zero R
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, false, newPipelineError(p.collection, opUpdate, "missing_id", errMissingID)
	}
	if revise == nil {
		return zero, false, newPipelineError(p.collection, opUpdate, "missing_builder", errMissingBuilder)
	}

	lookup := p.cache.Snapshot()
	if len(lookup) == 0 {
		fetched, err := p.FetchAll(ctx)
		if err != nil {
			return zero, false, newPipelineError(p.collection, opUpdate, reasonRemoteFailed, err)
		}
		lookup = fetched
	}

	index, err := indexOfResource(lookup, id)
	if err != nil {
		p.logError(opUpdate, reasonDuplicate, err, zap.String("id", id))
		return zero, false, newPipelineError(p.collection, opUpdate, reasonDuplicate, err)
	}
	if index < 0 {
		p.logger.Debug("update skipped for unknown resource",
			zap.String("collection", p.collection),
			zap.String("id", id))
		return zero, false, nil
	}

	replacement, err := revise(lookup[index])
	if err != nil {
		return zero, false, newPipelineError(p.collection, opUpdate, "revise_failed", err)
	}
	replacement = replacement.WithResourceID(id)

	document, err := p.codec.Encode(replacement)
	if err != nil {
		p.logError(opUpdate, reasonEncodeFailed, err, zap.String("id", id))
		return zero, false, newPipelineError(p.collection, opUpdate, reasonEncodeFailed, err)
	}
	if err := p.gateway.ReplaceOne(ctx, id, document); err != nil {
		p.logError(opUpdate, reasonRemoteFailed, err, zap.String("id", id))
		return zero, false, newPipelineError(p.collection, opUpdate, reasonRemoteFailed, err)
	}

	// Merge into the snapshot as it stands after the remote write, not the lookup copy:
	// publishing from lookup would drop adds or removals that landed while the write was in flight.
	current := p.cache.Snapshot()
	next, replaced, err := replaceResource(current, replacement)
	if err != nil {
		p.logError(opUpdate, reasonDuplicate, err, zap.String("id", id))
		return zero, false, newPipelineError(p.collection, opUpdate, reasonDuplicate, err)
	}
	if replaced {
		p.cache.Replace(next)
	}
	return replacement, true, nil
}

// Remove deletes id remotely and drops it from the snapshot. Removing an unknown id
// succeeds and leaves the snapshot unchanged.
func (p *Pipeline[R]) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return newPipelineError(p.collection, opRemove, "missing_id", errMissingID)
	}

	if err := p.gateway.Delete(ctx, id); err != nil {
		p.logError(opRemove, reasonRemoteFailed, err, zap.String("id", id))
		return newPipelineError(p.collection, opRemove, reasonRemoteFailed, err)
	}

	current := p.cache.Snapshot()
	next, removed, err := removeResource(current, id)
	if err != nil {
		p.logError(opRemove, reasonDuplicate, err, zap.String("id", id))
		return newPipelineError(p.collection, opRemove, reasonDuplicate, err)
	}
	if removed {
		p.cache.Replace(next)
	}
	return nil
}

func (p *Pipeline[R]) decodeCollection(documents map[string]json.RawMessage) []R {
	keys := make([]string, 0, len(documents))
	for key := range documents {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	decoded := make([]R, 0, len(keys))
	for _, key := range keys {
		document := documents[key]
		if isNullDocument(document) {
			continue
		}
		item, err := p.codec.Decode(key, document)
		if err != nil {
			p.logger.Warn("skipping undecodable document",
				zap.String("collection", p.collection),
				zap.String("id", key),
				zap.Error(err))
			continue
		}
		decoded = append(decoded, item)
	}
	return decoded
}

func (p *Pipeline[R]) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("collection", p.collection),
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	p.logger.Error("resource pipeline error", attrs...)
}

func isNullDocument(document json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(document))
	return trimmed == "" || trimmed == "null"
}
