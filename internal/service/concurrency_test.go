package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vectordb/vectordb/internal/embedder"
	"github.com/vectordb/vectordb/internal/entity"
)

// TestConcurrent_ManyReadersOneWriter runs 8 concurrent readers against a
// library while a single writer inserts 1000 chunks, asserting every
// Search call returns cleanly (no torn reads/panics) and the library holds
// exactly 1000 chunks once the writer finishes.
func TestConcurrent_ManyReadersOneWriter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lib, err := svc.CreateLibrary("concurrent", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	doc, err := svc.AddDocument(lib.ID, "d", nil)
	require.NoError(t, err)

	const numChunks = 1000
	const numReaders = 8

	var g errgroup.Group
	done := make(chan struct{})

	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for {
				select {
				case <-done:
					return nil
				default:
				}
				if _, err := svc.Search(ctx, lib.ID, "quick brown fox", 5, nil); err != nil {
					return err
				}
			}
		})
	}

	g.Go(func() error {
		defer close(done)
		for i := 0; i < numChunks; i++ {
			text := fmt.Sprintf("chunk number %d quick brown fox", i)
			if _, err := svc.AddChunk(ctx, doc.ID, text, nil); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, g.Wait())

	results, err := svc.Search(ctx, lib.ID, "quick brown fox", numChunks, nil)
	require.NoError(t, err)
	assert.Len(t, results, numChunks)
}

// TestConcurrent_IndependentLibrariesDoNotBlock ensures writers on two
// distinct libraries make progress without waiting on one another.
func TestConcurrent_IndependentLibrariesDoNotBlock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	libA, err := svc.CreateLibrary("a", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)
	libB, err := svc.CreateLibrary("b", "", entity.IndexBruteForce, embedder.StaticDimension)
	require.NoError(t, err)

	docA, err := svc.AddDocument(libA.ID, "d", nil)
	require.NoError(t, err)
	docB, err := svc.AddDocument(libB.ID, "d", nil)
	require.NoError(t, err)

	var g errgroup.Group
	const n = 200

	g.Go(func() error {
		for i := 0; i < n; i++ {
			if _, err := svc.AddChunk(ctx, docA.ID, fmt.Sprintf("a chunk %d", i), nil); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < n; i++ {
			if _, err := svc.AddChunk(ctx, docB.ID, fmt.Sprintf("b chunk %d", i), nil); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, g.Wait())

	resultsA, err := svc.Search(ctx, libA.ID, "a chunk", n, nil)
	require.NoError(t, err)
	assert.Len(t, resultsA, n)

	resultsB, err := svc.Search(ctx, libB.ID, "b chunk", n, nil)
	require.NoError(t, err)
	assert.Len(t, resultsB, n)
}
