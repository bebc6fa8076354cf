// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repoindex

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_LazyAndMemoised(t *testing.T) {
	var calls int32
	enum := FileEnumeratorFunc(func(ctx context.Context, root string) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"a.go", "src/b.go"}, nil
	})
	idx := New("/repo", enum)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no enumeration before first query")

	files, err := idx.AllFiles(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "src/b.go"}, files)

	_, err = idx.AllFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call uses memoised result")
}

func TestIndex_InvalidateTriggersReenumeration(t *testing.T) {
	var calls int32
	enum := FileEnumeratorFunc(func(ctx context.Context, root string) ([]string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return []string{"a.go"}, nil
		}
		return []string{"a.go", "b.go"}, nil
	})
	idx := New("/repo", enum)

	files, _ := idx.AllFiles(context.Background())
	assert.Len(t, files, 1)

	idx.Invalidate()

	files, _ = idx.AllFiles(context.Background())
	assert.Len(t, files, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIndex_ExistsAndFilesUnder(t *testing.T) {
	enum := FileEnumeratorFunc(func(ctx context.Context, root string) ([]string, error) {
		return []string{"README.md", "src/a.go", "src/lib/b.go", "docs/x.md"}, nil
	})
	idx := New("/repo", enum)

	ok, err := idx.Exists(context.Background(), "README.md")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Exists(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	under, err := idx.FilesUnder(context.Background(), "src")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.go", "src/lib/b.go"}, under)
}
