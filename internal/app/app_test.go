package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/data/repos/testutil"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
)

func TestNewWiresSQLiteStack(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file:"+filepath.Join(t.TempDir(), "app.db")+"?_foreign_keys=1")
	t.Setenv("LOG_MODE", "development")

	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/live-sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: %d", rec.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file:"+filepath.Join(t.TempDir(), "run.db")+"?_foreign_keys=1")
	t.Setenv("PORT", "0")

	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
}

func TestStartRearmsRunningAutoplaySessions(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file:"+filepath.Join(t.TempDir(), "rearm.db")+"?_foreign_keys=1")

	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	gdb := a.DB.DB()
	o := testutil.SeedOrganization(t, ctx, gdb)
	s := testutil.SeedLiveSession(t, ctx, gdb, o.ID, uuid.New(), live.StatusActive)
	if err := gdb.Model(&live.Session{}).Where("id = ?", s.ID).Update("control_mode", live.ControlAutoplay).Error; err != nil {
		t.Fatalf("set control mode: %v", err)
	}

	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if state, ok := a.Scheduler.Pending(s.ID); !ok || state != live.PlayLobby {
		t.Fatalf("autoplay timer not re-armed: state=%s ok=%v", state, ok)
	}
}
