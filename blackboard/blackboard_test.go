package blackboard

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	b := New()

	written, err := b.Write("analysis", "42 words", "analyzer", "nlp")
	require.NoError(t, err)
	assert.Equal(t, 1, written.Version)
	assert.Equal(t, "analyzer", written.Owner)
	assert.False(t, written.Created.IsZero())

	read, err := b.Read("analysis")
	require.NoError(t, err)
	assert.Equal(t, "42 words", read.Value)
	assert.True(t, read.HasTag("nlp"))
}

func TestReadUnknownKey(t *testing.T) {
	b := New()
	_, err := b.Read("nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteValidation(t *testing.T) {
	b := New()

	_, err := b.Write("", "v", "owner")
	assert.Error(t, err)

	_, err = b.Write("key", "v", "")
	assert.Error(t, err)
}

func TestOverwriteIncrementsVersion(t *testing.T) {
	b := New()

	first, err := b.Write("draft", "v1", "writer")
	require.NoError(t, err)
	second, err := b.Write("draft", "v2", "editor")
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)

	// Last writer wins, including ownership.
	read, err := b.Read("draft")
	require.NoError(t, err)
	assert.Equal(t, "v2", read.Value)
	assert.Equal(t, "editor", read.Owner)
	assert.Equal(t, first.Created, read.Created)
}

func TestTagsMergeWithoutDuplicates(t *testing.T) {
	b := New()

	_, err := b.Write("doc", "v1", "a", "output", "draft")
	require.NoError(t, err)
	entry, err := b.Write("doc", "v2", "a", "draft", "final")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"output", "draft", "final"}, entry.Tags)
}

func TestReadMany(t *testing.T) {
	b := New()
	_, err := b.Write("a", 1, "w")
	require.NoError(t, err)
	_, err = b.Write("b", 2, "w")
	require.NoError(t, err)

	got := b.ReadMany("a", "b", "missing")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got["a"].Value)
	assert.Equal(t, 2, got["b"].Value)
	_, present := got["missing"]
	assert.False(t, present)
}

func TestQueries(t *testing.T) {
	b := New()
	_, err := b.Write("z_report", "r", "publisher", "output")
	require.NoError(t, err)
	_, err = b.Write("a_summary", "s", "summarizer", "output")
	require.NoError(t, err)
	_, err = b.Write("scratch", "x", "summarizer")
	require.NoError(t, err)

	tagged := b.QueryByTag("output")
	require.Len(t, tagged, 2)
	// Ordered by key.
	assert.Equal(t, "a_summary", tagged[0].Key)
	assert.Equal(t, "z_report", tagged[1].Key)

	owned := b.QueryByOwner("summarizer")
	require.Len(t, owned, 2)
	assert.Equal(t, "a_summary", owned[0].Key)
	assert.Equal(t, "scratch", owned[1].Key)

	assert.Equal(t, []string{"a_summary", "scratch", "z_report"}, b.Keys())
	assert.Equal(t, 3, b.Len())
}

func TestEntriesAreCopies(t *testing.T) {
	b := New()
	_, err := b.Write("key", "value", "owner", "tag")
	require.NoError(t, err)

	entry, err := b.Read("key")
	require.NoError(t, err)
	entry.Tags[0] = "mutated"

	fresh, err := b.Read("key")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag"}, fresh.Tags)
}

func TestConcurrentWritersConverge(t *testing.T) {
	b := New()

	const writers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			owner := fmt.Sprintf("writer-%d", w)
			for i := 0; i < rounds; i++ {
				_, err := b.Write("contended", i, owner)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	entry, err := b.Read("contended")
	require.NoError(t, err)
	// Every write bumped the version exactly once.
	assert.Equal(t, writers*rounds, entry.Version)
}
