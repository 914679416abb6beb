package supervisor_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/component"
	"github.com/xcorat/araliya/internal/supervisor"
)

func writeConfig(t *testing.T, workDir string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[supervisor]
work_dir = "` + workDir + `"

[memory.basic_session]
kv_cap = 50
transcript_cap = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBootstrapBuildsRunnableSupervisor(t *testing.T) {
	workDir := t.TempDir()
	configPath := writeConfig(t, workDir)

	sup, err := supervisor.Bootstrap(supervisor.Options{ConfigPath: configPath})
	require.NoError(t, err)
	require.NotEmpty(t, sup.Identity.PublicID())

	ctx, cancel := context.WithCancel(context.Background())
	handle := component.SpawnComponents(ctx, sup.Components(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/health", nil)
	sup.HTTP.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	cancel()
	select {
	case <-waitDone(handle):
	case <-time.After(2 * time.Second):
		t.Fatal("components did not shut down after cancellation")
	}
}

func waitDone(h *component.Handle) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = h.Wait()
		close(done)
	}()
	return done
}
