package source

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if !strings.HasPrefix(a, "src_") {
		t.Errorf("NewID() = %q, want src_ prefix", a)
	}
	if len(a) != len("src_")+12 {
		t.Errorf("NewID() length = %d, want %d", len(a), len("src_")+12)
	}
	if a == b {
		t.Error("NewID() returned duplicate ids")
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	rec := Record{
		ID:           "src_abc123def456",
		CurriculumID: "cur_us_ca_mathematics_grade5_v1",
		Title:        "Khan Academy Grade 5 Math",
		URL:          "https://www.khanacademy.org/math/cc-fifth-grade-math",
		SourceType:   TypeEducationalPlatform,
		License:      LicenseCCBYNCSA,
		Vetted:       true,
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != rec.Title {
		t.Errorf("Title = %q, want %q", got.Title, rec.Title)
	}
	if got.ExtractionState != StatePending {
		t.Errorf("ExtractionState = %q, want pending default", got.ExtractionState)
	}

	if err := store.Create(ctx, rec); err == nil {
		t.Error("Create() should reject duplicate id")
	}
	if _, err := store.Get(ctx, "src_missing"); err == nil {
		t.Error("Get() should fail for unknown id")
	}
}

func TestMemoryStore_ListVetted(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()
	curID := "cur_us_mathematics_grade3_v1"

	for i, vetted := range []bool{true, false, true} {
		rec := Record{
			ID:           NewID(),
			CurriculumID: curID,
			Title:        "source " + string(rune('a'+i)),
			Vetted:       vetted,
		}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	other := Record{ID: NewID(), CurriculumID: "cur_other", Vetted: true}
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	vetted, err := store.ListVetted(ctx, curID)
	if err != nil {
		t.Fatalf("ListVetted() error = %v", err)
	}
	if len(vetted) != 2 {
		t.Errorf("ListVetted() returned %d records, want 2", len(vetted))
	}

	all, err := store.ListByCurriculum(ctx, curID)
	if err != nil {
		t.Fatalf("ListByCurriculum() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListByCurriculum() returned %d records, want 3", len(all))
	}
}

func TestMemoryStore_SetChunkRefs(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	rec := Record{ID: "src_1", CurriculumID: "cur_x"}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	chunkIDs := []string{"ck_tpl_aaa", "ck_tpl_bbb"}
	if err := store.SetChunkRefs(ctx, "src_1", chunkIDs, StateExtracted); err != nil {
		t.Fatalf("SetChunkRefs() error = %v", err)
	}

	got, _ := store.Get(ctx, "src_1")
	if len(got.ChunkIDs) != 2 || got.ExtractionState != StateExtracted {
		t.Errorf("record after SetChunkRefs = %+v", got)
	}

	if err := store.SetChunkRefs(ctx, "src_missing", nil, StateFailed); err == nil {
		t.Error("SetChunkRefs() should fail for unknown id")
	}
}
