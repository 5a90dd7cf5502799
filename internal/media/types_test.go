package media

import "testing"

func TestItemKey(t *testing.T) {
	movie := Item{Kind: KindMovie, IDs: IDs{Trakt: 603}}
	if got := movie.Key(); got != "movie:603" {
		t.Errorf("movie key = %q, want %q", got, "movie:603")
	}

	show := Item{Kind: KindShow, IDs: IDs{Trakt: 1390}}
	if got := show.Key(); got != "show:1390" {
		t.Errorf("show key = %q, want %q", got, "show:1390")
	}
}

func TestItemKeyWithSeason(t *testing.T) {
	item := Item{Kind: KindShow, IDs: IDs{Trakt: 1390}, Season: 4}
	if got := item.Key(); got != "show:1390:s4" {
		t.Errorf("season item key = %q, want %q", got, "show:1390:s4")
	}

	// The same series pending different seasons must not collide.
	other := Item{Kind: KindShow, IDs: IDs{Trakt: 1390}, Season: 5}
	if item.Key() == other.Key() {
		t.Error("items for different seasons of the same series share a key")
	}
}
