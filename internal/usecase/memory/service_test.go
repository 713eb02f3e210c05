package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterChatMetrics()
	m.Run()
}

func TestAppend_CapEvictsOldest(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 4, 0)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		q := fmt.Sprintf("T%d", i)
		if err := svc.Append(ctx, "s1", "tenant", q, "a"+q); err != nil {
			t.Fatalf("append %s: %v", q, err)
		}
	}

	turns, err := svc.Read(ctx, "s1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"T2", "T3", "T4", "T5"}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(turns))
	}
	for i, w := range want {
		if turns[i].Question != w {
			t.Errorf("turn %d: got %q, want %q", i, turns[i].Question, w)
		}
	}
}

func TestAppend_DefaultCap(t *testing.T) {
	svc := New(newMemRepo(), nil, 0, 0)
	if svc.MaxTurns() != 4 {
		t.Errorf("expected default cap 4, got %d", svc.MaxTurns())
	}
}

func TestAppend_CreatedAtStable(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 4, 0)
	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := first
	svc.now = func() time.Time { return clock }

	ctx := context.Background()
	if err := svc.Append(ctx, "s1", "tenant", "q1", "a1"); err != nil {
		t.Fatal(err)
	}
	clock = first.Add(time.Hour)
	if err := svc.Append(ctx, "s1", "tenant", "q2", "a2"); err != nil {
		t.Fatal(err)
	}

	if got := repo.createdAt["s1"]; !got.Equal(first) {
		t.Errorf("created_at changed: got %v, want %v", got, first)
	}
	turns, _ := svc.Read(ctx, "s1")
	if !turns[1].Timestamp.Equal(first.Add(time.Hour)) {
		t.Errorf("unexpected timestamp on second turn: %v", turns[1].Timestamp)
	}
}

func TestAppend_RefreshesTTL(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 4, 24*time.Hour)

	if err := svc.Append(context.Background(), "s1", "tenant", "q", "a"); err != nil {
		t.Fatal(err)
	}
	if repo.ttls["s1"] != 24*time.Hour {
		t.Errorf("expected ttl 24h, got %v", repo.ttls["s1"])
	}
}

func TestAppend_NoTTL(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 4, 0)

	if err := svc.Append(context.Background(), "s1", "tenant", "q", "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := repo.ttls["s1"]; ok {
		t.Error("expected no ttl refresh")
	}
}

func TestAppend_RepoError(t *testing.T) {
	repo := newMemRepo()
	repo.appendErr = errors.New("connection refused")
	svc := New(repo, nil, 4, 0)

	err := svc.Append(context.Background(), "s1", "tenant", "q", "a")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, repo.appendErr) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}

func TestRead_Empty(t *testing.T) {
	svc := New(newMemRepo(), nil, 4, 0)

	turns, err := svc.Read(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected no turns, got %d", len(turns))
	}
}

func TestSession_ReturnsMetadata(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 4, 0)
	ctx := context.Background()

	if err := svc.Append(ctx, "s1", "tenant-a", "q1", "a1"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.Append(ctx, "s1", "tenant-a", "q2", "a2"); err != nil {
		t.Fatalf("append: %v", err)
	}

	h, err := svc.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.TenantID != "tenant-a" || len(h.Turns) != 2 {
		t.Errorf("unexpected history: %+v", h)
	}
	if h.CreatedAt.IsZero() || !h.CreatedAt.Equal(h.Turns[0].Timestamp) {
		t.Errorf("created_at should match the first turn, got %v", h.CreatedAt)
	}
}

func TestSession_RepoError(t *testing.T) {
	repo := newMemRepo()
	repo.turnsErr = errors.New("timeout")
	svc := New(repo, nil, 4, 0)

	if _, err := svc.Session(context.Background(), "s1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnforceCap_LeavesRoomForOne(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Append(ctx, "s1", "tenant", fmt.Sprintf("q%d", i), "a"); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.EnforceCap(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	n, _ := repo.Len(ctx, "s1")
	if n != 2 {
		t.Errorf("expected 2 turns after enforce, got %d", n)
	}
}

func TestAppend_ConcurrentSameSession(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, nil, 4, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := svc.Append(ctx, "s1", "tenant", fmt.Sprintf("q%d", i), "a"); err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	n, _ := repo.Len(ctx, "s1")
	if n != 4 {
		t.Errorf("expected cap to hold under concurrency, got %d turns", n)
	}
}

func TestPurgeOrphans(t *testing.T) {
	repo := newMemRepo()
	ctx := context.Background()
	svc := New(repo, newMockDirectory("live"), 4, 0)

	for _, s := range []struct{ id, tenant string }{
		{"s1", "live"},
		{"s2", "gone"},
		{"s3", "gone"},
		{"s4", ""},
	} {
		if err := svc.Append(ctx, s.id, s.tenant, "q", "a"); err != nil {
			t.Fatal(err)
		}
	}

	before := testutil.ToFloat64(metrics.MemoryOrphansPurgedTotal)
	removed, err := svc.PurgeOrphans(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}
	if !repo.has("s1") {
		t.Error("live session must survive")
	}
	for _, id := range []string{"s2", "s3", "s4"} {
		if repo.has(id) {
			t.Errorf("session %s should be purged", id)
		}
	}
	if got := testutil.ToFloat64(metrics.MemoryOrphansPurgedTotal) - before; got != 3 {
		t.Errorf("expected purged counter +3, got %v", got)
	}
}

func TestPurgeOrphans_MemoizesTenant(t *testing.T) {
	repo := newMemRepo()
	dir := newMockDirectory("live")
	svc := New(repo, dir, 4, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.Append(ctx, fmt.Sprintf("s%d", i), "gone", "q", "a"); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.PurgeOrphans(ctx); err != nil {
		t.Fatal(err)
	}
	if dir.lookups["gone"] != 1 {
		t.Errorf("expected one directory lookup per tenant, got %d", dir.lookups["gone"])
	}
}

func TestPurgeOrphans_DirectoryOutageKeepsSessions(t *testing.T) {
	repo := newMemRepo()
	dir := newMockDirectory()
	dir.errs["flaky"] = domain.ErrDirectoryUnavailable
	svc := New(repo, dir, 4, 0)
	ctx := context.Background()

	if err := svc.Append(ctx, "s1", "flaky", "q", "a"); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.PurgeOrphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("expected nothing removed, got %d", removed)
	}
	if !repo.has("s1") {
		t.Error("session must survive a directory outage")
	}
}

func TestPurgeOrphans_SkipsDeleteFailures(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, newMockDirectory(), 4, 0)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		if err := svc.Append(ctx, id, "gone", "q", "a"); err != nil {
			t.Fatal(err)
		}
	}
	repo.deleteErr["s1"] = errors.New("READONLY")

	before := testutil.ToFloat64(metrics.MemoryErrorsTotal.WithLabelValues("purge"))
	removed, err := svc.PurgeOrphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if got := testutil.ToFloat64(metrics.MemoryErrorsTotal.WithLabelValues("purge")) - before; got != 1 {
		t.Errorf("expected purge error counter +1, got %v", got)
	}
}

func TestPurgeOrphans_TenantLookupError(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, newMockDirectory(), 4, 0)
	ctx := context.Background()

	if err := svc.Append(ctx, "s1", "gone", "q", "a"); err != nil {
		t.Fatal(err)
	}
	repo.tenantErr["s1"] = errors.New("timeout")

	removed, err := svc.PurgeOrphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 || !repo.has("s1") {
		t.Error("session with unreadable tenant must be skipped")
	}
}

func TestPurgeOrphans_ListError(t *testing.T) {
	repo := newMemRepo()
	repo.sessionsErr = errors.New("connection refused")
	svc := New(repo, newMockDirectory(), 4, 0)

	if _, err := svc.PurgeOrphans(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPurgeOrphans_NoDirectory(t *testing.T) {
	svc := New(newMemRepo(), nil, 4, 0)
	if _, err := svc.PurgeOrphans(context.Background()); err == nil {
		t.Fatal("expected error without directory")
	}
}

func TestPurgeOrphans_Cancelled(t *testing.T) {
	repo := newMemRepo()
	svc := New(repo, newMockDirectory(), 4, 0)
	if err := svc.Append(context.Background(), "s1", "gone", "q", "a"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.PurgeOrphans(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !repo.has("s1") {
		t.Error("nothing should be deleted after cancellation")
	}
}

func TestStripedLock_SameSessionSameStripe(t *testing.T) {
	var l stripedLock
	unlock := l.lock("abc")
	done := make(chan struct{})
	go func() {
		u := l.lock("abc")
		u()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second lock acquired while first held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
}
