package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/testkit"
	"ordsnap/internal/services/snapshots/domain"
	"ordsnap/internal/services/snapshots/repo"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc := New(repo.New(filepath.Join(t.TempDir(), "data")), cfg)
	base := time.Date(2025, 1, 24, 6, 30, 45, 0, time.UTC)
	n := 0
	// distinct, increasing stamps per write
	testkit.Swap(t, &svc.now, func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})
	return svc
}

func TestWrite_SingleFileBelowThresholds(t *testing.T) {
	svc := newTestService(t, Config{})
	ref, err := svc.Write(context.Background(), domain.KindHolderSummary, domain.HolderMap{
		"w1": {"a"}, "w2": {"b", "c"},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ref.Sharded || len(ref.Paths) != 1 {
		t.Fatalf("expected one file, got %+v", ref)
	}
	if !strings.HasPrefix(filepath.Base(ref.Paths[0]), "holderSummary-") {
		t.Fatalf("bad filename: %s", ref.Paths[0])
	}
	if ref.Wallets != 2 || ref.Identifiers != 3 {
		t.Fatalf("counts = %d/%d, want 2/3", ref.Wallets, ref.Identifiers)
	}
}

func TestWrite_SplitMonotonicity(t *testing.T) {
	// below both thresholds -> one file; crossing either one -> shards
	data := domain.HolderMap{"w1": {"a"}, "w2": {"b"}, "w3": {"c"}, "w4": {"d"}, "w5": {"e"}, "w6": {"f"}}

	single := newTestService(t, Config{SizeThreshold: 1 << 20, WalletThreshold: 100})
	ref, err := single.Write(context.Background(), domain.KindHolderSummary, data)
	if err != nil || ref.Sharded {
		t.Fatalf("below thresholds should be single file: %+v, %v", ref, err)
	}

	bySize := newTestService(t, Config{SizeThreshold: 10, WalletThreshold: 100})
	ref, err = bySize.Write(context.Background(), domain.KindHolderSummary, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !ref.Sharded || len(ref.Paths) < 2 {
		t.Fatalf("size threshold crossing should shard: %+v", ref)
	}

	byCount := newTestService(t, Config{SizeThreshold: 1 << 20, WalletThreshold: 5})
	ref, err = byCount.Write(context.Background(), domain.KindHolderSummary, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !ref.Sharded {
		t.Fatalf("wallet threshold crossing should shard: %+v", ref)
	}
}

func TestWrite_ShardSetNamingAndDisjointness(t *testing.T) {
	data := domain.HolderMap{}
	for _, w := range []string{"w01", "w02", "w03", "w04", "w05", "w06", "w07", "w08", "w09", "w10"} {
		data[w] = []string{"id-" + w}
	}
	svc := newTestService(t, Config{WalletThreshold: 3})
	ref, err := svc.Write(context.Background(), domain.KindHolderSummary, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !ref.Sharded || len(ref.Paths) != 5 {
		t.Fatalf("expected 5 shards, got %+v", ref)
	}
	seen := map[string]bool{}
	for i, p := range ref.Paths {
		name := filepath.Base(p)
		if !strings.Contains(name, domain.ChunkMarker) {
			t.Fatalf("shard %s missing chunk marker", name)
		}
		if want := "-chunk" + string(rune('1'+i)) + ".json"; !strings.HasSuffix(name, want) {
			t.Fatalf("shard %d name %s, want suffix %s", i, name, want)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read shard: %v", err)
		}
		var part domain.HolderMap
		if err := json.Unmarshal(b, &part); err != nil {
			t.Fatalf("shard %s not valid JSON: %v", name, err)
		}
		for k := range part {
			if seen[k] {
				t.Fatalf("wallet %s appears in two shards", k)
			}
			seen[k] = true
		}
	}
	if len(seen) != len(data) {
		t.Fatalf("shards cover %d wallets, want %d", len(seen), len(data))
	}
}

func TestClean_RemovesInvalidEntries(t *testing.T) {
	svc := newTestService(t, Config{})
	in := domain.HolderMap{
		"":          {"a"},
		" wallet1 ": {"b", "", "   ", "c"},
		"wallet2":   {"", "  "},
	}
	out, wallets, identifiers := svc.clean(in)
	if wallets != 1 || identifiers != 2 {
		t.Fatalf("clean counts = %d/%d, want 1/2", wallets, identifiers)
	}
	want := domain.HolderMap{"wallet1": {"b", "c"}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("clean mismatch (-want +got):\n%s", diff)
	}
	// input untouched
	if len(in[" wallet1 "]) != 4 {
		t.Fatalf("clean mutated the input map")
	}
}

func TestClean_RejectsOverlongIdentifiers(t *testing.T) {
	svc := newTestService(t, Config{MaxIdentifierLen: 10})
	out, _, _ := svc.clean(domain.HolderMap{"w": {"short", strings.Repeat("x", 10)}})
	if diff := cmp.Diff(domain.HolderMap{"w": {"short"}}, out); diff != "" {
		t.Fatalf("overlong identifier survived (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_SingleFile(t *testing.T) {
	svc := newTestService(t, Config{})
	in := domain.HolderMap{" w1 ": {" a ", "b"}, "w2": {"c"}}
	if _, err := svc.Write(context.Background(), domain.KindHolderSummary, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path, err := svc.LocateLatest(context.Background(), domain.KindHolderSummary)
	if err != nil {
		t.Fatalf("LocateLatest: %v", err)
	}
	got, err := svc.ReadHolderMap(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadHolderMap: %v", err)
	}
	want := domain.HolderMap{"w1": {"a", "b"}, "w2": {"c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestShardReconstructionCompleteness(t *testing.T) {
	data := domain.HolderMap{}
	for _, w := range walletNames(37) {
		data[w] = []string{w + "-id1", w + "-id2"}
	}

	svc := newTestService(t, Config{WalletThreshold: 10})
	ref, err := svc.Write(context.Background(), domain.KindHolderSummary, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !ref.Sharded {
		t.Fatalf("expected sharded write")
	}

	path, err := svc.LocateLatest(context.Background(), domain.KindHolderSummary)
	if err != nil {
		t.Fatalf("LocateLatest: %v", err)
	}
	if base := filepath.Base(path); strings.Contains(base, domain.ChunkMarker) || strings.HasPrefix(base, "holderSummary-") {
		t.Fatalf("merged file should be <timestamp>.json, got %s", base)
	}
	got, err := svc.ReadHolderMap(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadHolderMap: %v", err)
	}
	sortIDs := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff(data, got, sortIDs); diff != "" {
		t.Fatalf("reconstruction incomplete (-want +got):\n%s", diff)
	}
}

func TestMergeIdempotence(t *testing.T) {
	data := domain.HolderMap{}
	for _, w := range walletNames(20) {
		data[w] = []string{w + "-a", w + "-b"}
	}
	svc := newTestService(t, Config{WalletThreshold: 4})
	if _, err := svc.Write(context.Background(), domain.KindHolderSummary, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path1, err := svc.LocateLatest(context.Background(), domain.KindHolderSummary)
	if err != nil {
		t.Fatalf("first LocateLatest: %v", err)
	}
	m1, err := svc.ReadHolderMap(context.Background(), path1)
	if err != nil {
		t.Fatalf("read first merge: %v", err)
	}

	path2, err := svc.LocateLatest(context.Background(), domain.KindHolderSummary)
	if err != nil {
		t.Fatalf("second LocateLatest: %v", err)
	}
	if path1 != path2 {
		t.Fatalf("re-merge produced a different file: %s vs %s", path1, path2)
	}
	m2, err := svc.ReadHolderMap(context.Background(), path2)
	if err != nil {
		t.Fatalf("read second merge: %v", err)
	}
	if diff := cmp.Diff(m1, m2); diff != "" {
		t.Fatalf("merge not idempotent (-first +second):\n%s", diff)
	}
}

func TestLocateLatest_PicksNewestRegardlessOfListingOrder(t *testing.T) {
	svc := newTestService(t, Config{})
	store := svc.Store
	// write out of chronological order
	for _, ts := range []string{
		"2025-01-02T00-00-00-000Z",
		"2025-01-03T00-00-00-000Z",
		"2025-01-01T00-00-00-000Z",
	} {
		if _, err := store.Write("FinalResult-"+ts+".json", []byte(`{"w":["a"]}`)); err != nil {
			t.Fatalf("seed write: %v", err)
		}
	}
	path, err := svc.LocateLatest(context.Background(), domain.KindFinalResult)
	if err != nil {
		t.Fatalf("LocateLatest: %v", err)
	}
	if filepath.Base(path) != "FinalResult-2025-01-03T00-00-00-000Z.json" {
		t.Fatalf("picked %s, want the T3 snapshot", filepath.Base(path))
	}
}

func TestLocateLatest_NoSnapshot(t *testing.T) {
	svc := newTestService(t, Config{})
	_, err := svc.LocateLatest(context.Background(), domain.KindHolderSummary)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "holderSummary") {
		t.Fatalf("error should name the kind: %v", err)
	}
}

func TestChunkIndex_MalformedDefaultsToZero(t *testing.T) {
	cases := map[string]int{
		"holderSummary-T-chunk3.json":  3,
		"holderSummary-T-chunk12.json": 12,
		"holderSummary-T-chunkX.json":  0,
		"holderSummary-T-chunk.json":   0,
		"holderSummary-T.json":         0,
	}
	for name, want := range cases {
		if got := chunkIndex(name); got != want {
			t.Fatalf("chunkIndex(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestLocateLatest_MalformedChunkSortsFirst(t *testing.T) {
	svc := newTestService(t, Config{})
	store := svc.Store
	ts := "2025-01-05T00-00-00-000Z"
	// the wallet w is defined by chunkX (index 0) and chunk2; last shard wins
	seed := map[string]string{
		"holderSummary-" + ts + "-chunkX.json": `{"w":["old"],"only-x":["x"]}`,
		"holderSummary-" + ts + "-chunk2.json": `{"w":["new"]}`,
	}
	for name, body := range seed {
		if _, err := store.Write(name, []byte(body)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	path, err := svc.LocateLatest(context.Background(), domain.KindHolderSummary)
	if err != nil {
		t.Fatalf("LocateLatest: %v", err)
	}
	got, err := svc.ReadHolderMap(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadHolderMap: %v", err)
	}
	want := domain.HolderMap{"w": {"new"}, "only-x": {"x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge order wrong (-want +got):\n%s", diff)
	}
}

func TestWriteRaw_CollectionsArray(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := []map[string]any{{"symbol": "punks", "name": "Bitcoin Punks"}}
	ref, err := svc.WriteRaw(context.Background(), domain.KindCollections, payload)
	if err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	b, err := os.ReadFile(ref.Paths[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0]["symbol"] != "punks" {
		t.Fatalf("payload mismatch: %v", got)
	}
}

func TestWrite_UnknownKind(t *testing.T) {
	svc := newTestService(t, Config{})
	if _, err := svc.Write(context.Background(), domain.Kind("bogus"), nil); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want InvalidArgument, got %v", err)
	}
}

func TestList_Entries(t *testing.T) {
	svc := newTestService(t, Config{})
	store := svc.Store
	seed := []string{
		"holderSummary-2025-01-01T00-00-00-000Z-chunk1.json",
		"collections-2025-01-02T00-00-00-000Z.json",
		"2025-01-01T00-00-00-000Z.json",
	}
	for _, n := range seed {
		if _, err := store.Write(n, []byte("{}")); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	entries, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List len = %d", len(entries))
	}
	byName := map[string]domain.Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	hs := byName[seed[0]]
	if hs.Kind != "holderSummary" || !hs.Sharded || hs.Timestamp != "2025-01-01T00-00-00-000Z" {
		t.Fatalf("sharded entry parsed wrong: %+v", hs)
	}
	col := byName[seed[1]]
	if col.Kind != "collections" || col.Sharded {
		t.Fatalf("collections entry parsed wrong: %+v", col)
	}
	mg := byName[seed[2]]
	if mg.Kind != "merged" || mg.Timestamp != "2025-01-01T00-00-00-000Z" {
		t.Fatalf("merged entry parsed wrong: %+v", mg)
	}
}

// faultyStore fails Write for one specific file name and delegates the rest
type faultyStore struct {
	domain.StorePort
	failName string
}

func (f *faultyStore) Write(name string, data []byte) (string, error) {
	if name == f.failName {
		return "", perr.IOf("write snapshot %s: disk full", name)
	}
	return f.StorePort.Write(name, data)
}

func TestWrite_SurvivesSingleShardFailure(t *testing.T) {
	svc := newTestService(t, Config{WalletThreshold: 5, ShardCount: 5})
	data := domain.HolderMap{}
	for _, w := range walletNames(10) {
		data[w] = []string{"id-" + w}
	}

	// the second shard's write fails; the other four must still land
	stamp := domain.Stamp(time.Date(2025, 1, 24, 6, 30, 46, 0, time.UTC))
	svc.Store = &faultyStore{
		StorePort: svc.Store,
		failName:  "holderSummary-" + stamp + "-chunk2.json",
	}

	ref, err := svc.Write(context.Background(), domain.KindHolderSummary, data)
	if err != nil {
		t.Fatalf("Write must not fail when a single shard does: %v", err)
	}
	if !ref.Sharded {
		t.Fatalf("expected a shard set, got %+v", ref)
	}
	if len(ref.Paths) != 4 {
		t.Fatalf("surviving shards = %d, want 4: %v", len(ref.Paths), ref.Paths)
	}
	for _, p := range ref.Paths {
		if strings.HasSuffix(p, "-chunk2.json") {
			t.Fatalf("failed shard reported as written: %v", ref.Paths)
		}
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("surviving shard missing on disk: %v", err)
		}
	}
}

// walletNames returns n deterministic wallet keys
func walletNames(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, "wallet-"+string(rune('a'+i/26))+string(rune('a'+i%26)))
	}
	sort.Strings(out)
	return out
}
