package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"autoads_bot/internal/model"
)

func listings(links ...string) []model.Listing {
	ls := make([]model.Listing, len(links))
	for i, link := range links {
		ls[i] = model.Listing{Link: link}
	}
	return ls
}

func links(ls []model.Listing) []string {
	var out []string
	for _, l := range ls {
		out = append(out, l.Link)
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		fresh []model.Listing // page order, newest first
		tail  []string
		want  []string // chronological, oldest new first
	}{
		{
			name:  "empty tail first run returns everything reversed",
			fresh: listings("c", "b", "a"),
			tail:  nil,
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "five new rows before three known rows",
			fresh: listings("n5", "n4", "n3", "n2", "n1", "k3", "k2", "k1"),
			tail:  []string{"k1", "k2", "k3"},
			want:  []string{"n1", "n2", "n3", "n4", "n5"},
		},
		{
			name:  "no new listings",
			fresh: listings("k3", "k2", "k1"),
			tail:  []string{"k1", "k2", "k3"},
			want:  nil,
		},
		{
			name:  "anchor survives deletion of newest known ad",
			fresh: listings("n1", "k2", "k1"),
			tail:  []string{"k1", "k2", "k3"},
			want:  []string{"n1"},
		},
		{
			name:  "anchor miss treats whole snapshot as new",
			fresh: listings("c", "b", "a"),
			tail:  []string{"gone1", "gone2"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "promoted rows are excluded",
			fresh: listings("n2", "promo/booster/x", "n1", "k1"),
			tail:  []string{"k1"},
			want:  []string{"n1", "n2"},
		},
		{
			name:  "promoted rows excluded on first run too",
			fresh: listings("b", "ads/booster/y", "a"),
			tail:  nil,
			want:  []string{"a", "b"},
		},
		{
			name:  "tail member is never re-emitted even mid-page",
			fresh: listings("n1", "k1", "n0", "k2"),
			tail:  []string{"k1", "k2"},
			want:  []string{"n0", "n1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.fresh, tt.tail)
			if diff := cmp.Diff(tt.want, links(got)); diff != "" {
				t.Errorf("Compute mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeNeverEmitsTailMembers(t *testing.T) {
	fresh := listings("e", "d", "c", "b", "a")
	tail := []string{"b", "d"}

	got := Compute(fresh, tail)
	for _, l := range got {
		for _, known := range tail {
			if l.Link == known {
				t.Errorf("tail member %q re-emitted as new", known)
			}
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	fresh := listings("n3", "n2", "n1", "k1")
	first := Compute(fresh, []string{"k1"})
	if len(first) != 3 {
		t.Fatalf("expected 3 new listings, got %d", len(first))
	}

	// Tail after persisting the first result covers everything on the page.
	tail := []string{"k1"}
	for _, l := range first {
		tail = append(tail, l.Link)
	}

	second := Compute(fresh, tail)
	if len(second) != 0 {
		t.Errorf("second run should be empty, got %v", links(second))
	}
}

func TestIsPromo(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://site.example/ro/1001", false},
		{"https://site.example/booster/1999", true},
		{"https://site.example/ro/booster-x", true},
	}
	for _, tt := range tests {
		if got := IsPromo(tt.link); got != tt.want {
			t.Errorf("IsPromo(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}
