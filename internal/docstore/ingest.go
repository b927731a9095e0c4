package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kioku/internal/fileid"
	"github.com/hyperjump/kioku/internal/models"
)

// Metadata keys set by IngestFile.
const (
	MetaKeySourcePath  = "source_path"
	MetaKeySourceMtime = "source_mtime"
	MetaKeySourceSize  = "source_size"
)

// Ingest indexes a document and returns its id. A document whose length exceeds the
// chunk threshold is split into chunks, and only the chunks are inserted; the chunk ids
// are recorded on the document record. Otherwise the whole content is inserted under
// the document id. Ingestions of the same id are serialised.
//
// Nothing is inserted if embedding fails. A failure inside the final batch insert of a
// persistent index can leave a subset of chunks behind.
func (s *Store) Ingest(ctx context.Context, in *models.DocumentInput) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: nil document", models.ErrInvalidArgument)
	}
	id := in.ID
	if id == "" {
		id = s.newID()
	}
	meta := models.Metadata{
		ID:       id,
		Filename: in.Filename,
		Length:   utf8.RuneCountInString(in.Content),
		FileType: in.FileType,
	}
	if len(in.Metadata) > 0 {
		meta.Extra = make(map[string]any, len(in.Metadata))
		for k, v := range in.Metadata {
			meta.Extra[k] = v
		}
	}
	if err := meta.Validate(); err != nil {
		return "", err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	rec := &models.DocumentRecord{Metadata: meta}
	if meta.Length > s.threshold {
		chunks, err := s.chunker.Chunk(in.Content, meta)
		if err != nil {
			return "", err
		}
		if len(chunks) > 0 {
			ids, err := s.ingestChunks(ctx, chunks)
			if err != nil {
				return "", err
			}
			rec.Chunked = true
			rec.Metadata.ChunkIDs = ids
		}
	}
	if !rec.Chunked {
		vec, err := s.embedder.Embed(ctx, in.Content)
		if err != nil {
			return "", fmt.Errorf("embed document %s: %w", id, err)
		}
		entry := &models.IndexEntry{ID: id, Vector: vec, Metadata: meta, Text: in.Content}
		if err := s.index.Insert(ctx, entry); err != nil {
			return "", fmt.Errorf("index document %s: %w", id, err)
		}
	}

	if err := s.records.PutDocument(ctx, rec); err != nil {
		return "", fmt.Errorf("record document %s: %w", id, err)
	}
	s.logger.Debug("document ingested",
		zap.String("id", id),
		zap.String("filename", in.Filename),
		zap.Int("length", meta.Length),
		zap.Int("chunks", len(rec.Metadata.ChunkIDs)))
	return id, nil
}

// ingestChunks embeds every chunk, in bounded parallel batches, and inserts them in one batch
// once all vectors are available.
func (s *Store) ingestChunks(ctx context.Context, chunks []*models.Chunk) ([]string, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, ch := range chunks[start:end] {
				texts = append(texts, ch.Content)
			}
			vecs, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]*models.IndexEntry, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		entries[i] = &models.IndexEntry{ID: ch.ID, Vector: vectors[i], Metadata: ch.Metadata, Text: ch.Content}
		ids[i] = ch.ID
	}
	if err := s.index.InsertBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("index chunks of %s: %w", chunks[0].DocumentID, err)
	}
	return ids, nil
}

// IngestFile extracts the text of the file at path and ingests it under an id derived
// from the absolute path, so re-ingesting the same file overwrites it. A file that is
// already indexed with the same size and modification time is skipped.
func (s *Store) IngestFile(ctx context.Context, path string) (string, error) {
	id, _, err := s.SyncFile(ctx, path)
	return id, err
}

// SyncFile is IngestFile that also reports whether the file was ingested (true) or
// skipped as unchanged (false).
func (s *Store) SyncFile(ctx context.Context, path string) (string, bool, error) {
	id, absPath, err := fileid.ForPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("%w: not a regular file: %s", models.ErrInvalidArgument, absPath)
	}
	mtime := strconv.FormatInt(info.ModTime().UnixNano(), 10)
	size := strconv.FormatInt(info.Size(), 10)
	if s.unchanged(ctx, id, absPath, mtime, size) {
		s.logger.Debug("skipping unchanged file", zap.String("path", absPath), zap.String("id", id))
		return id, false, nil
	}

	ex, err := s.extractor.Extract(absPath)
	if err != nil {
		return "", false, fmt.Errorf("extract content: %w", err)
	}
	if strings.TrimSpace(ex.Text) == "" {
		return "", false, fmt.Errorf("%w: no text found in %s", models.ErrInvalidArgument, absPath)
	}
	id, err = s.Ingest(ctx, &models.DocumentInput{
		ID:       id,
		Filename: filepath.Base(absPath),
		Content:  ex.Text,
		FileType: ex.FileType,
		Metadata: map[string]any{
			MetaKeySourcePath:  absPath,
			MetaKeySourceMtime: mtime,
			MetaKeySourceSize:  size,
		},
	})
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// unchanged reports whether id was recorded from the same file state and is still in the index.
func (s *Store) unchanged(ctx context.Context, id, absPath, mtime, size string) bool {
	rec, err := s.records.GetDocument(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("failed to read document record", zap.String("id", id), zap.Error(err))
		}
		return false
	}
	extra := rec.Metadata.Extra
	if extra[MetaKeySourcePath] != absPath || extra[MetaKeySourceMtime] != mtime || extra[MetaKeySourceSize] != size {
		return false
	}
	entryID := id
	if rec.Chunked && len(rec.Metadata.ChunkIDs) > 0 {
		entryID = rec.Metadata.ChunkIDs[0]
	}
	_, ok, err := s.index.Get(ctx, entryID)
	return err == nil && ok
}
