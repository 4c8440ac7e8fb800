package history

import (
	"os"
	"testing"
	"time"

	"github.com/starford/trellis/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "trellis-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Record(&models.AnalyticsReport{
			TotalModules:  i + 1,
			TotalPages:    10 * (i + 1),
			OrphanedPages: make([]string, i),
			GeneratedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	snaps, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len = %d, want 2", len(snaps))
	}
	if snaps[0].TotalModules != 3 || snaps[1].TotalModules != 2 {
		t.Errorf("newest-first ordering broken: %+v", snaps)
	}
	if snaps[0].OrphanedPages != 2 {
		t.Errorf("orphaned = %d, want 2", snaps[0].OrphanedPages)
	}
}

func TestRecentEmpty(t *testing.T) {
	s := testStore(t)
	snaps, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("len = %d, want 0", len(snaps))
	}
}
