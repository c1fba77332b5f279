package align_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/MrWong99/lectio/internal/align"
	"github.com/MrWong99/lectio/pkg/types"
)

var differs = map[string]align.Differ{
	"myers": align.MyersDiffer{},
	"lcs":   align.LCSDiffer{},
}

func spoken(texts ...string) []types.Word {
	out := make([]types.Word, len(texts))
	for i, t := range texts {
		out[i] = types.Word{Text: t, ErrorType: types.ErrorNone, AccuracyScore: 90, Duration: 3_000_000, Offset: int64(i) * 4_000_000}
	}
	return out
}

func summary(words []types.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text + ":" + string(w.ErrorType)
	}
	return out
}

func TestReferenceWords(t *testing.T) {
	t.Parallel()

	got := align.ReferenceWords("  Hello, World! It's a \"test\" -- ok.  ")
	want := []string{"hello", "world", "it's", "a", "test", "ok"}
	if !slices.Equal(got, want) {
		t.Errorf("ReferenceWords=%q, want %q", got, want)
	}
	if got := align.ReferenceWords(" ... !! "); len(got) != 0 {
		t.Errorf("ReferenceWords(punctuation only)=%q, want empty", got)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reference []string
		spoken    []string
		want      []string
	}{
		{
			name:      "omission",
			reference: []string{"a", "b", "c"},
			spoken:    []string{"a", "c"},
			want:      []string{"a:None", "b:Omission", "c:None"},
		},
		{
			name:      "insertion",
			reference: []string{"a", "b"},
			spoken:    []string{"a", "b", "x"},
			want:      []string{"a:None", "b:None", "x:Insertion"},
		},
		{
			name:      "substitution",
			reference: []string{"the", "cat", "sat"},
			spoken:    []string{"the", "hat", "sat"},
			want:      []string{"the:None", "cat:Omission", "hat:Insertion", "sat:None"},
		},
		{
			name:      "nothing spoken",
			reference: []string{"a", "b"},
			spoken:    nil,
			want:      []string{"a:Omission", "b:Omission"},
		},
		{
			name:      "empty reference",
			reference: nil,
			spoken:    []string{"uh", "hi"},
			want:      []string{"uh:Insertion", "hi:Insertion"},
		},
		{
			name:      "normalized comparison keeps original text",
			reference: []string{"hello", "world"},
			spoken:    []string{"Hello,", "WORLD."},
			want:      []string{"Hello,:None", "WORLD.:None"},
		},
	}
	for name, d := range differs {
		for _, tc := range tests {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				t.Parallel()
				c := align.NewClassifier(align.WithDiffer(d))
				got := summary(c.Classify(tc.reference, spoken(tc.spoken...)))
				if !slices.Equal(got, tc.want) {
					t.Errorf("Classify=%q, want %q", got, tc.want)
				}
			})
		}
	}
}

func TestClassify_OmissionFields(t *testing.T) {
	t.Parallel()

	c := align.NewClassifier()
	got := c.Classify([]string{"a", "b", "c"}, spoken("a", "c"))
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	om := got[1]
	if om.AccuracyScore != 0 || om.Duration != 0 {
		t.Errorf("omission=%+v, want zero accuracy and duration", om)
	}
	// Matched words are passed through untouched.
	if got[2].Duration != 3_000_000 || got[2].Offset != 4_000_000 {
		t.Errorf("matched word=%+v, want original timing", got[2])
	}
}

func TestApply_KeepsNonNoneInsertions(t *testing.T) {
	t.Parallel()

	rec := spoken("a", "x")
	rec[1].ErrorType = types.ErrorOmission
	deltas := []align.Delta{
		{Op: align.Unchanged, Reference: "a", Recognized: "a"},
		{Op: align.Modified, Reference: "b", Recognized: "x"},
	}
	got := summary(align.Apply(deltas, rec))
	want := []string{"a:None", "x:Omission"}
	if !slices.Equal(got, want) {
		t.Errorf("Apply=%q, want %q", got, want)
	}
}

func TestDiff_DeletedBeforeInserted(t *testing.T) {
	t.Parallel()

	for name, d := range differs {
		deltas := d.Diff([]string{"a", "b", "c", "d"}, []string{"a", "x", "y", "d"})
		var ops []align.Op
		for _, dl := range deltas {
			ops = append(ops, dl.Op)
		}
		want := []align.Op{align.Unchanged, align.Deleted, align.Deleted, align.Inserted, align.Inserted, align.Unchanged}
		if !slices.Equal(ops, want) {
			t.Errorf("%s: ops=%v, want %v", name, ops, want)
		}
	}
}

// Both differs must produce a minimal script that consumes both inputs in
// order, and must agree on how many words matched.
func TestDiff_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	vocab := []string{"a", "b", "c", "d", "e", "f"}
	randWords := func() []string {
		n := rng.IntN(12)
		out := make([]string, n)
		for i := range out {
			out[i] = vocab[rng.IntN(len(vocab))]
		}
		return out
	}

	for iter := range 200 {
		ref, rec := randWords(), randWords()
		matched := map[string]int{}
		for name, d := range differs {
			deltas := d.Diff(ref, rec)
			var gotRef, gotRec []string
			for _, dl := range deltas {
				switch dl.Op {
				case align.Unchanged:
					if dl.Reference != dl.Recognized {
						t.Fatalf("iter %d %s: unchanged delta %+v differs", iter, name, dl)
					}
					matched[name]++
					gotRef = append(gotRef, dl.Reference)
					gotRec = append(gotRec, dl.Recognized)
				case align.Deleted:
					gotRef = append(gotRef, dl.Reference)
				case align.Inserted:
					gotRec = append(gotRec, dl.Recognized)
				}
			}
			if !slices.Equal(gotRef, ref) && !(len(gotRef) == 0 && len(ref) == 0) {
				t.Fatalf("iter %d %s: reference not consumed in order: %q vs %q", iter, name, gotRef, ref)
			}
			if !slices.Equal(gotRec, rec) && !(len(gotRec) == 0 && len(rec) == 0) {
				t.Fatalf("iter %d %s: recognized not consumed in order: %q vs %q", iter, name, gotRec, rec)
			}

			words := align.Apply(deltas, spoken(rec...))
			nonOmitted := 0
			for _, w := range words {
				if w.ErrorType != types.ErrorOmission {
					nonOmitted++
				}
			}
			if nonOmitted != len(rec) {
				t.Fatalf("iter %d %s: %d non-omitted words, want %d", iter, name, nonOmitted, len(rec))
			}
		}
		if matched["myers"] != matched["lcs"] {
			t.Fatalf("iter %d: myers matched %d, lcs matched %d (ref=%q rec=%q)",
				iter, matched["myers"], matched["lcs"], ref, rec)
		}
	}
}

func TestSubstitutions(t *testing.T) {
	t.Parallel()

	c := align.NewClassifier()
	ref := []string{"the", "cat", "sat", "on", "the", "mat"}
	deltas := c.Deltas(ref, spoken("the", "hat", "sat", "the", "mat", "today"))
	got := align.Substitutions(deltas)

	if len(got) != 1 {
		t.Fatalf("Substitutions=%+v, want exactly one", got)
	}
	if got[0].Reference != "cat" || got[0].Spoken != "hat" || got[0].Position != 1 {
		t.Errorf("Substitution=%+v, want cat->hat at 1", got[0])
	}
}

func TestOpString(t *testing.T) {
	t.Parallel()

	if align.Deleted.String() != "deleted" || align.Op(42).String() != "unknown" {
		t.Errorf("unexpected Op strings: %q %q", align.Deleted, align.Op(42))
	}
}
