package gateway

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dux-project/dux/remote"
	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/treemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchWhileRemoving(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeTestFile(t, filepath.Join(dir, fmt.Sprintf("d%v", i), "data.bin"), 100*(i+1))
	}

	store := remote.NewMemoryStore()
	session := NewSession(treemap.NewEngine(treemap.Options{}), remote.NewAdapter(&listingRunner{}, store, remote.Options{}), store)
	require.NoError(t, session.StartLocal(dir, scan.Options{}))
	require.Equal(t, scan.StateCompleted, session.Wait())

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := session.Remove(filepath.Join(dir, fmt.Sprintf("d%v", i), "data.bin"))
			assert.NoError(t, err)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			infos, err := session.Search("d", 0)
			assert.NoError(t, err)

			// results are copies, readable without the tree lock
			var total int64
			for _, info := range infos {
				total += info.Size + info.FileCount
			}
			assert.GreaterOrEqual(t, total, int64(0))
		}
	}()

	wg.Wait()

	infos, err := session.Search("d", 0)
	require.NoError(t, err)
	assert.Len(t, infos, 20)
	for _, info := range infos {
		assert.Equal(t, int64(0), info.Size)
		assert.True(t, info.IsDirectory)
	}
}
