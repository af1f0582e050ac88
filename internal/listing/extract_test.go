package listing

import (
	"reflect"
	"testing"

	"github.com/baranw/adscraper/internal/dom"
)

func TestNormalizeSpace(t *testing.T) {
	if got := NormalizeSpace("  a\n\tb  "); got != "a b" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeSpace("   "); got != "" {
		t.Fatalf("whitespace-only must normalize to empty, got %q", got)
	}
}

func TestText_AbsenceDistinctFromEmpty(t *testing.T) {
	root := dom.Parse(`<div id="x"></div>`)
	if text, ok := Text(root, "#x"); !ok || text != "" {
		t.Fatalf("empty node must yield present empty text, got %q ok=%v", text, ok)
	}
	if _, ok := Text(root, "#y"); ok {
		t.Fatalf("missing node must be absence")
	}
}

func TestText_SubtreeInDocumentOrder(t *testing.T) {
	root := dom.Parse(`<div id="x"> Mercedes  <span> Benz </span>  200 </div>`)
	text, ok := Text(root, "#x")
	if !ok || text != "Mercedes Benz 200" {
		t.Fatalf("got %q ok=%v", text, ok)
	}
}

func TestListItems(t *testing.T) {
	root := dom.Parse(`<ul id="x"><li>A</li><li>B</li></ul>`)
	if got := ListItems(root, "#x"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("got %v", got)
	}
}

func TestListItems_SkipsNonItemsWithoutRecursing(t *testing.T) {
	root := dom.Parse(`<ul id="x"><li>A</li><div><li>nested</li></div><li>  </li><li>B</li></ul>`)
	if got := ListItems(root, "#x"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("non-li children and blank items must be dropped, got %v", got)
	}
}

func TestListItems_AbsentContainer(t *testing.T) {
	root := dom.Parse(`<p>no list</p>`)
	if got := ListItems(root, "#x"); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestImages_PrefersHighResolutionBucket(t *testing.T) {
	root := dom.Parse(`<div id="viewad-product">
		<img src="https://img.example/1.jpg?rule=$_59">
		<img src="https://img.example/1-thumb.jpg">
		<img data-imgsrc="https://img.example/2.jpg?rule=$_59" src="https://img.example/2-thumb.jpg">
	</div>`)
	got := Images(root)
	want := []string{
		"https://img.example/1.jpg?rule=$_59",
		"https://img.example/2.jpg?rule=$_59",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestImages_FallbackBucketOnlyWhenNoHighRes(t *testing.T) {
	root := dom.Parse(`<div id="viewad-product">
		<img src="https://img.example/a.jpg">
		<img src="https://img.example/b.jpg">
		<img src="https://img.example/a.jpg">
	</div>`)
	got := Images(root)
	want := []string{"https://img.example/a.jpg", "https://img.example/b.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("duplicates must collapse and order hold, got %v", got)
	}
}

func TestImages_WholeTreeWhenScopeMissing(t *testing.T) {
	root := dom.Parse(`<body><img src="https://img.example/x.jpg"></body>`)
	if got := Images(root); !reflect.DeepEqual(got, []string{"https://img.example/x.jpg"}) {
		t.Fatalf("got %v", got)
	}
}

func TestBreadcrumb_DropsSiteSentinel(t *testing.T) {
	root := dom.Parse(`<div id="vap-brdcrmb">
		<a>Kleinanzeigen</a><a>Auto</a><span>Mercedes</span>
	</div>`)
	got, ok := Breadcrumb(root)
	if !ok || got != "Auto > Mercedes" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestBreadcrumb_SentinelOnlyIsAbsence(t *testing.T) {
	root := dom.Parse(`<div id="vap-brdcrmb"><a>KLEINANZEIGEN</a></div>`)
	if _, ok := Breadcrumb(root); ok {
		t.Fatalf("sentinel-only breadcrumb must be absence")
	}
}

func TestBreadcrumb_SentinelOnlyDroppedWhenFirst(t *testing.T) {
	root := dom.Parse(`<div id="vap-brdcrmb"><a>Auto</a><a>Kleinanzeigen</a></div>`)
	got, ok := Breadcrumb(root)
	if !ok || got != "Auto > Kleinanzeigen" {
		t.Fatalf("sentinel not in first position must stay, got %q", got)
	}
}

func TestUserID_FromProfileLink(t *testing.T) {
	root := dom.Parse(`<div id="viewad-contact"><div><ul><li>
		<i><a href="/s-bestandsliste.html?userId=12345">Profil</a></i>
	</li></ul></div></div>`)
	got, ok := UserID(root)
	if !ok || got != "12345" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestUserID_FallsBackToLinkText(t *testing.T) {
	root := dom.Parse(`<div id="viewad-contact"><div><ul><li>
		<i><a href="/profil">  Händler  GmbH </a></i>
	</li></ul></div></div>`)
	got, ok := UserID(root)
	if !ok || got != "Händler GmbH" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestUserID_Absent(t *testing.T) {
	root := dom.Parse(`<p>nothing here</p>`)
	if _, ok := UserID(root); ok {
		t.Fatalf("expected absence")
	}
}

func TestLocation_JoinsStreetAndLocality(t *testing.T) {
	root := dom.Parse(`<div>
		<span id="street-address">Musterstraße 1,</span>
		<span id="viewad-locality">12345 Berlin</span>
	</div>`)
	got, ok := Location(root)
	if !ok || got != "Musterstraße 1, 12345 Berlin" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestLocation_EitherPartAlone(t *testing.T) {
	root := dom.Parse(`<span id="viewad-locality">12345 Berlin</span>`)
	if got, ok := Location(root); !ok || got != "12345 Berlin" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	root = dom.Parse(`<span id="street-address">Musterstraße 1,</span>`)
	if got, ok := Location(root); !ok || got != "Musterstraße 1" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}
