package result_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/result"
)

func TestHashIsStableAndDistinct(t *testing.T) {
	a := result.Hash("seed=1:percent=70:bias=0")
	if a != result.Hash("seed=1:percent=70:bias=0") {
		t.Fatal("hash of equal strings differs")
	}
	if len(a) != 40 || strings.ToLower(a) != a {
		t.Errorf("hash %q is not 40 lowercase hex chars", a)
	}
	if a == result.Hash("seed=2:percent=70:bias=0") {
		t.Error("different args produced the same hash")
	}
	if got := result.Hash(""); got != "da39a3ee5e6b4b0d3255bfef95601890afd80709" {
		t.Errorf("Hash(\"\") = %q", got)
	}
}

func TestMergeRecomputesMean(t *testing.T) {
	a := result.NewConfiguration("-x 1 ")
	a.Add(result.PartitionResult{Partition: "fold=0", Score: 10, Time: 1, Completed: true})
	a.Add(result.PartitionResult{Partition: "fold=1", Score: 20, Time: 1, Completed: true})
	b := result.NewConfiguration("-x 1 ")
	b.Add(result.PartitionResult{Partition: "fold=2", Score: 0, Time: 0.5, Completed: true})
	b.Add(result.PartitionResult{Partition: "fold=3", Score: 0, Time: 0.5, Completed: true})

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if a.Mean() != 7.5 {
		t.Errorf("mean: got %v, want 7.5", a.Mean())
	}
	if a.NumPartitions() != 4 {
		t.Errorf("partitions: got %d, want 4", a.NumPartitions())
	}
	if a.TotalTime() != 3 {
		t.Errorf("time: got %v, want 3", a.TotalTime())
	}
}

func TestMergeConflict(t *testing.T) {
	a := result.NewConfiguration("-x 1 ")
	b := result.NewConfiguration("-x 2 ")
	err := a.Merge(b)
	if !errs.Is(err, errs.ErrMergeConflict) {
		t.Fatalf("expected merge conflict, got %v", err)
	}
}

func TestMergeKeepsIncomplete(t *testing.T) {
	a := result.NewConfiguration("-x 1 ")
	b := result.NewConfiguration("-x 1 ")
	b.MarkIncomplete()
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Complete() {
		t.Error("merge with an incomplete record should be incomplete")
	}
}

func TestStorePathIsSharded(t *testing.T) {
	store := result.NewStore("/exp")
	h := result.Hash("-x 1 ")
	want := filepath.Join("/exp", "points", h[:2], h[2:]+".result")
	if got := store.Path(h); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClaimSaveLoad(t *testing.T) {
	store := result.NewStore(t.TempDir())
	c := result.NewConfiguration("-C 0.5 ")
	c.Worker = "w1"
	c.Seed = "3"

	if store.Exists(c.Hash()) {
		t.Fatal("fresh store reports the point as existing")
	}
	ok, err := store.Claim(c.Hash())
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.Claim(c.Hash())
	if err != nil || ok {
		t.Fatalf("second claim should lose: ok=%v err=%v", ok, err)
	}

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll with only a claim: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("claims must not be loaded, got %d records", len(all))
	}

	c.Add(result.PartitionResult{Partition: "default", Score: 12.5, Time: 4, Completed: true})
	if err := store.Save(c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(c.Hash())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Args() != c.Args() || got.Hash() != c.Hash() {
		t.Errorf("round trip changed identity: %q %q", got.Args(), got.Hash())
	}
	if got.Mean() != 12.5 || !got.Complete() || got.Worker != "w1" {
		t.Errorf("round trip changed contents: mean=%v complete=%v worker=%q", got.Mean(), got.Complete(), got.Worker)
	}

	entries, _ := os.ReadDir(filepath.Dir(store.Path(c.Hash())))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestLoadAllMissingTree(t *testing.T) {
	store := result.NewStore(filepath.Join(t.TempDir(), "nothing"))
	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("got %d records", len(all))
	}
}

func TestLoadRejectsTamperedHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.result")
	body := `{"args":"-x 1 ","hash":"0000000000000000000000000000000000000000","complete":true,"results":[]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := result.ReadConfiguration(path)
	if !errs.Is(err, errs.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestReleaseDropsOnlyEmptyClaims(t *testing.T) {
	store := result.NewStore(t.TempDir())
	claimed := result.NewConfiguration("-x 1 ")
	if ok, err := store.Claim(claimed.Hash()); err != nil || !ok {
		t.Fatalf("Claim: %v %v", ok, err)
	}
	if err := store.Release(claimed.Hash()); err != nil {
		t.Fatal(err)
	}
	if store.Exists(claimed.Hash()) {
		t.Error("released claim still present")
	}
	if err := store.Release(claimed.Hash()); err != nil {
		t.Errorf("releasing twice: %v", err)
	}

	saved := result.NewConfiguration("-x 2 ")
	if _, err := store.Claim(saved.Hash()); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}
	if err := store.Release(saved.Hash()); err != nil {
		t.Fatal(err)
	}
	if !store.Exists(saved.Hash()) {
		t.Error("release removed a saved record")
	}
}
