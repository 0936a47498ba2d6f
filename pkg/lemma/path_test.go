package lemma

import (
	"reflect"
	"testing"
)

func verifiedLemma(deps ...int) Lemma {
	return Lemma{Statement: "s", Status: StatusVerified, Dependencies: deps}
}

func pendingLemma(deps ...int) Lemma {
	return Lemma{Statement: "s", Status: StatusPending, Dependencies: deps}
}

func TestBuildReasoningPath(t *testing.T) {
	tests := []struct {
		name         string
		view         []Lemma
		id           int
		verifiedOnly bool
		want         []int
	}{
		{
			name: "empty view",
			view: nil,
			id:   0,
			want: nil,
		},
		{
			name: "id out of range",
			view: []Lemma{verifiedLemma()},
			id:   5,
			want: nil,
		},
		{
			name: "negative id",
			view: []Lemma{verifiedLemma()},
			id:   -1,
			want: nil,
		},
		{
			name: "no dependencies",
			view: []Lemma{verifiedLemma()},
			id:   0,
			want: nil,
		},
		{
			name: "linear chain",
			view: []Lemma{verifiedLemma(), verifiedLemma(0), verifiedLemma(1)},
			id:   2,
			want: []int{0, 1},
		},
		{
			name: "diamond deduplicates",
			view: []Lemma{verifiedLemma(), verifiedLemma(0), verifiedLemma(0), verifiedLemma(1, 2)},
			id:   3,
			want: []int{0, 1, 2},
		},
		{
			name: "shared tail keeps topological order",
			view: []Lemma{verifiedLemma(), verifiedLemma(0), verifiedLemma(0, 1), verifiedLemma(1, 2)},
			id:   3,
			want: []int{0, 1, 2},
		},
		{
			name:         "verified only skips pending dep",
			view:         []Lemma{verifiedLemma(), pendingLemma(), verifiedLemma(0, 1)},
			id:           2,
			verifiedOnly: true,
			want:         []int{0},
		},
		{
			name:         "verified only does not traverse through pending",
			view:         []Lemma{verifiedLemma(), pendingLemma(0), verifiedLemma(1)},
			id:           2,
			verifiedOnly: true,
			want:         nil,
		},
		{
			name:         "unverified traversal includes pending",
			view:         []Lemma{verifiedLemma(), pendingLemma(0), verifiedLemma(1)},
			id:           2,
			verifiedOnly: false,
			want:         []int{0, 1},
		},
		{
			name: "self dependency ignored",
			view: []Lemma{verifiedLemma(), {Statement: "s", Status: StatusVerified, Dependencies: []int{1, 0}}},
			id:   1,
			want: []int{0},
		},
		{
			name: "forward dependency ignored",
			view: []Lemma{verifiedLemma(), {Statement: "s", Status: StatusVerified, Dependencies: []int{7, 0}}},
			id:   1,
			want: []int{0},
		},
		{
			name: "negative dependency ignored",
			view: []Lemma{verifiedLemma(), {Statement: "s", Status: StatusVerified, Dependencies: []int{-2, 0}}},
			id:   1,
			want: []int{0},
		},
		{
			name:         "rejected excluded under verified only",
			view:         []Lemma{{Statement: "s", Status: StatusRejected}, verifiedLemma(), verifiedLemma(0, 1)},
			id:           2,
			verifiedOnly: true,
			want:         []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildReasoningPath(tt.view, tt.id, tt.verifiedOnly)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildReasoningPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Each entry's surviving dependencies must appear at earlier output
// positions, whatever the dependency declaration order.
func TestBuildReasoningPathTopologicalInvariant(t *testing.T) {
	view := []Lemma{
		verifiedLemma(),
		verifiedLemma(),
		verifiedLemma(1, 0),
		verifiedLemma(2),
		verifiedLemma(3, 1),
		verifiedLemma(4, 2, 0),
	}

	path := BuildReasoningPath(view, 5, true)
	if len(path) != 5 {
		t.Fatalf("expected all 5 ancestors, got %v", path)
	}

	pos := make(map[int]int, len(path))
	for i, id := range path {
		pos[id] = i
	}
	for _, id := range path {
		for _, dep := range view[id].Dependencies {
			depPos, ok := pos[dep]
			if !ok {
				t.Fatalf("dependency %d of lemma %d missing from path %v", dep, id, path)
			}
			if depPos >= pos[id] {
				t.Errorf("dependency %d appears at %d, after lemma %d at %d", dep, depPos, id, pos[id])
			}
		}
	}
}
