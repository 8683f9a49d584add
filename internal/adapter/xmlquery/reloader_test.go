package xmlquery

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaceFile swaps the content in with a rename so the watcher never sees a
// truncated file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestNewReloader_RequiresRegistry(t *testing.T) {
	_, err := NewReloader(nil, nil, 0)
	require.Error(t, err)
}

func TestReloader_Reload(t *testing.T) {
	path := writeFile(t, `<q><query name="A"><![CDATA[SELECT 1]]></query></q>`)
	rec := &recorder{}
	initial, err := Load(context.Background(), path, rec)
	require.NoError(t, err)

	r, err := NewReloader(initial, rec, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop() })

	require.NoError(t, os.WriteFile(path, []byte(`<q><query name="A"><![CDATA[SELECT 2]]></query><query name="B"><![CDATA[SELECT 3]]></query></q>`), 0o644))
	require.NoError(t, r.Reload(context.Background()))

	body, ok := r.GetQuery(context.Background(), "A")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 2", body)
	assert.Equal(t, 2, r.Current().Len())
	assert.Equal(t, 1, rec.count("reloaded:2"))
}

func TestReloader_FailedReloadKeepsPrevious(t *testing.T) {
	path := writeFile(t, `<q><query name="A"><![CDATA[SELECT 1]]></query></q>`)
	rec := &recorder{}
	initial, err := Load(context.Background(), path, rec)
	require.NoError(t, err)

	r, err := NewReloader(initial, rec, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop() })

	require.NoError(t, os.WriteFile(path, []byte(`<q><query name="A"><![CDATA[SELECT 1]]></query><query name="A"><![CDATA[SELECT 2]]></query></q>`), 0o644))
	require.Error(t, r.Reload(context.Background()))

	assert.Same(t, initial, r.Current())
	body, ok := r.GetQuery(context.Background(), "A")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", body)
	assert.Equal(t, 1, rec.count("not_unique:A"))
	assert.Equal(t, 1, rec.count("reload_failed"))
}

func TestReloader_WatchesFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem watcher test in short mode")
	}

	path := writeFile(t, `<q><query name="A"><![CDATA[SELECT 1]]></query></q>`)
	rec := &recorder{}
	initial, err := Load(context.Background(), path, rec)
	require.NoError(t, err)

	r, err := NewReloader(initial, rec, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	t.Cleanup(func() { _ = r.Stop() })

	replaceFile(t, path, `<q><query name="A"><![CDATA[SELECT 42]]></query></q>`)

	require.Eventually(t, func() bool {
		return r.Current().queries["A"] == "SELECT 42"
	}, 5*time.Second, 20*time.Millisecond)

	replaceFile(t, path, `<q><query name="A"></query></q>`)

	require.Eventually(t, func() bool {
		return rec.count("reload_failed") > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "SELECT 42", r.Current().queries["A"])
}

func TestReloader_StopWithoutStart(t *testing.T) {
	path := writeFile(t, `<q><query name="A"><![CDATA[SELECT 1]]></query></q>`)
	initial, err := Load(context.Background(), path, nil)
	require.NoError(t, err)

	r, err := NewReloader(initial, nil, 0)
	require.NoError(t, err)
	assert.NoError(t, r.Stop())
	assert.NoError(t, r.Stop())
}
