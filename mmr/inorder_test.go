package mmr

import "testing"

func TestInOrderIndexHeight(t *testing.T) {
	tests := []struct {
		name string
		i    InOrderIndex
		want uint64
	}{
		{"leaf 0", 0, 0},
		{"first interior", 1, 1},
		{"leaf 1", 2, 0},
		{"root of four", 3, 2},
		{"leaf 2", 4, 0},
		{"second pair root", 5, 1},
		{"leaf 3", 6, 0},
		{"root of eight", 7, 3},
		{"third pair root", 9, 1},
		{"right subtree root of eight", 11, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.i.Height(); got != tt.want {
				t.Errorf("Height(%d) = %v, want %v", tt.i, got, tt.want)
			}
		})
	}
}

func TestInOrderIndexSibling(t *testing.T) {
	tests := []struct {
		name string
		i    InOrderIndex
		want InOrderIndex
	}{
		{"leaf 0 pairs right", 0, 2},
		{"leaf 1 pairs left", 2, 0},
		{"pair roots pair each other", 1, 5},
		{"and back", 5, 1},
		{"height 2 siblings", 3, 11},
		{"leaf 4 pairs right", 8, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.i.Sibling(); got != tt.want {
				t.Errorf("Sibling(%d) = %v, want %v", tt.i, got, tt.want)
			}
		})
	}
}

func TestInOrderIndexParent(t *testing.T) {
	tests := []struct {
		name string
		i    InOrderIndex
		want InOrderIndex
	}{
		{"leaf 0", 0, 1},
		{"leaf 1", 2, 1},
		{"leaf 2", 4, 5},
		{"leaf 3", 6, 5},
		{"left pair root", 1, 3},
		{"right pair root", 5, 3},
		{"height 2 left", 3, 7},
		{"height 2 right", 11, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.i.Parent(); got != tt.want {
				t.Errorf("Parent(%d) = %v, want %v", tt.i, got, tt.want)
			}
		})
	}
}

func TestInOrderRoundTrips(t *testing.T) {
	// For every leaf and interior node in a reasonable range the child and
	// parent relations must invert each other.
	for i := InOrderIndex(0); i < 1<<12; i++ {
		if i.IsLeaf() {
			if got := LeafIndex(i.LeafPos()); got != i {
				t.Fatalf("LeafIndex(LeafPos(%d)) = %d", i, got)
			}
			continue
		}
		left, ok := i.LeftChild()
		if !ok {
			t.Fatalf("interior %d has no left child", i)
		}
		right, _ := i.RightChild()
		if left.Parent() != i || right.Parent() != i {
			t.Fatalf("children of %d do not agree on their parent", i)
		}
		if left.Sibling() != right || right.Sibling() != left {
			t.Fatalf("children of %d are not each other's sibling", i)
		}
		if !left.IsLeftChild() || right.IsLeftChild() {
			t.Fatalf("left/right classification wrong under %d", i)
		}
	}
}

func TestSubtreeRootIndex(t *testing.T) {
	tests := []struct {
		name      string
		startLeaf uint64
		height    uint64
		want      InOrderIndex
	}{
		{"single leaf is its own root", 3, 0, 6},
		{"first pair", 0, 1, 1},
		{"second pair", 2, 1, 5},
		{"first four", 0, 2, 3},
		{"second four", 4, 2, 11},
		{"first eight", 0, 3, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubtreeRootIndex(tt.startLeaf, tt.height); got != tt.want {
				t.Errorf("SubtreeRootIndex(%d, %d) = %v, want %v", tt.startLeaf, tt.height, got, tt.want)
			}
		})
	}
}

func TestLeafBlocks(t *testing.T) {
	tests := []struct {
		name string
		from uint64
		to   uint64
		want []LeafBlock
	}{
		{"empty", 4, 4, nil},
		{"single", 0, 1, []LeafBlock{{0, 0}}},
		{"from zero to eight", 0, 8, []LeafBlock{{0, 3}}},
		{"one to eight", 1, 8, []LeafBlock{{1, 0}, {2, 1}, {4, 2}}},
		{"five to eleven", 5, 11, []LeafBlock{{5, 0}, {6, 1}, {8, 1}, {10, 0}}},
		{"append one", 6, 7, []LeafBlock{{6, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LeafBlocks(tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("LeafBlocks(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("LeafBlocks(%d, %d)[%d] = %v, want %v", tt.from, tt.to, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPeakOfLeaf(t *testing.T) {
	type result struct {
		peakIndex int
		height    uint64
		startLeaf uint64
	}
	tests := []struct {
		name   string
		forest uint64
		pos    uint64
		want   result
		wantOk bool
	}{
		{"forest 1 leaf 0", 1, 0, result{0, 0, 0}, true},
		{"forest 3 leaf 1", 3, 1, result{0, 1, 0}, true},
		{"forest 3 leaf 2", 3, 2, result{1, 0, 2}, true},
		{"forest 11 leaf 7", 11, 7, result{0, 3, 0}, true},
		{"forest 11 leaf 9", 11, 9, result{1, 1, 8}, true},
		{"forest 11 leaf 10", 11, 10, result{2, 0, 10}, true},
		{"out of range", 4, 4, result{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peakIndex, height, startLeaf, ok := PeakOfLeaf(tt.forest, tt.pos)
			if ok != tt.wantOk {
				t.Fatalf("PeakOfLeaf(%d, %d) ok = %v, want %v", tt.forest, tt.pos, ok, tt.wantOk)
			}
			if !ok {
				return
			}
			got := result{peakIndex, height, startLeaf}
			if got != tt.want {
				t.Errorf("PeakOfLeaf(%d, %d) = %+v, want %+v", tt.forest, tt.pos, got, tt.want)
			}
		})
	}
}
