package listing

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/baranw/adscraper/internal/dom"
)

const samplePage = `<!DOCTYPE html>
<html><body>
<div id="vap-brdcrmb"><a>Kleinanzeigen</a><a>Auto, Rad &amp; Boot</a><a>Autos</a></div>
<h1 id="viewad-title">Mercedes-Benz  E 200</h1>
<div id="viewad-price">12.500 € VB</div>
<div id="viewad-details"><div>
  <ul>
    <li>Marke <span>Mercedes-Benz</span></li>
    <li>Modell <span>E 200</span></li>
    <li>Kilometerstand <span>150.000 km</span></li>
  </ul>
  <ul>
    <li>Getriebe <span>Automatik</span></li>
  </ul>
</div></div>
<div id="viewad-configuration"><div><ul>
  <li>ABS</li>
  <li>Klimaanlage</li>
  <li>  </li>
</ul></div></div>
<div id="viewad-description-text">Sehr gepflegt.<br />Scheckheft.
  <a id="mobile-link" href="app://x">In der App öffnen</a>
</div>
<div id="viewad-product">
  <img data-imgsrc="https://img.example/1.jpg?rule=$_59" src="https://img.example/1-s.jpg">
  <img src="https://img.example/2-s.jpg">
</div>
<div id="viewad-ad-id-box"><ul><li>Anzeige-ID</li><li>987654321</li></ul></div>
<div id="viewad-contact"><div><ul><li>
  <span>
    <span class="text-body-regular-strong text-force-linebreak userprofile-vip"><a>Autohaus Muster</a></span>
    <span><span>Gewerblicher Nutzer</span></span>
    <span><span>Aktiv seit 01.02.2020</span></span>
  </span>
  <i><a href="/bestand?userId=555">Profil</a></i>
</li></ul></div></div>
<span id="street-address">Musterweg 9,</span>
<span id="viewad-locality">10115 Berlin</span>
</body></html>`

func TestBuild_FullPage(t *testing.T) {
	root := dom.Parse(samplePage)
	l := Build(root)

	vehicle, ok := l["fahrzeug"].(map[string]any)
	if !ok {
		t.Fatalf("missing fahrzeug section: %v", l)
	}
	if vehicle["title"] != "Mercedes-Benz E 200" {
		t.Fatalf("title: %v", vehicle["title"])
	}
	if vehicle["marke"] != "Mercedes-Benz" || vehicle["modell"] != "E 200" {
		t.Fatalf("detail fields wrong: %v", vehicle)
	}
	if vehicle["kilometerstand"] != "150.000 km" {
		t.Fatalf("kilometerstand: %v", vehicle["kilometerstand"])
	}
	if vehicle["getriebe"] != "Automatik" {
		t.Fatalf("second detail list: %v", vehicle["getriebe"])
	}
	if _, present := vehicle["kraftstoffart"]; present {
		t.Fatalf("fields past the list end must be omitted")
	}

	price, ok := vehicle["preis"].(map[string]any)
	if !ok || price["wert"] != "12.500 € VB" {
		t.Fatalf("preis: %v", vehicle["preis"])
	}

	if got := vehicle["ausstattung"]; !reflect.DeepEqual(got, []string{"ABS", "Klimaanlage"}) {
		t.Fatalf("ausstattung: %v", got)
	}

	desc, _ := vehicle["Beschreibung"].(string)
	if !strings.Contains(desc, "Sehr gepflegt.<br>Scheckheft.") {
		t.Fatalf("description must normalize br and keep markup: %q", desc)
	}
	if strings.Contains(desc, "mobile-link") || strings.Contains(desc, "App") {
		t.Fatalf("mobile-link subtree must be excluded: %q", desc)
	}

	if got := vehicle["images"]; !reflect.DeepEqual(got, []string{"https://img.example/1.jpg?rule=$_59"}) {
		t.Fatalf("images must hold only the high-res bucket: %v", got)
	}

	ad, ok := l["anzeige"].(map[string]any)
	if !ok {
		t.Fatalf("missing anzeige section")
	}
	if ad["kategorie"] != "Auto, Rad & Boot > Autos" {
		t.Fatalf("kategorie: %v", ad["kategorie"])
	}
	if ad["anzeige_id"] != "987654321" {
		t.Fatalf("anzeige_id: %v", ad["anzeige_id"])
	}

	seller, ok := l["verkaeufer"].(map[string]any)
	if !ok {
		t.Fatalf("missing verkaeufer section")
	}
	if seller["name"] != "Autohaus Muster" {
		t.Fatalf("name: %v", seller["name"])
	}
	if seller["nutzertyp"] != "Gewerblicher Nutzer" {
		t.Fatalf("nutzertyp: %v", seller["nutzertyp"])
	}
	if seller["aktiv_seit"] != "01.02.2020" {
		t.Fatalf("aktiv_seit prefix must be stripped: %v", seller["aktiv_seit"])
	}
	if seller["userid"] != "555" {
		t.Fatalf("userid: %v", seller["userid"])
	}
	if seller["ort"] != "Musterweg 9, 10115 Berlin" {
		t.Fatalf("ort: %v", seller["ort"])
	}
}

func TestBuild_EmptyDocument(t *testing.T) {
	l := Build(dom.Parse(""))
	// Lists are always present, so the vehicle section survives; the other
	// sections must be omitted entirely rather than emitted empty.
	if _, present := l["anzeige"]; present {
		t.Fatalf("empty anzeige section must be omitted")
	}
	if _, present := l["verkaeufer"]; present {
		t.Fatalf("empty verkaeufer section must be omitted")
	}
	vehicle := l["fahrzeug"].(map[string]any)
	if got := vehicle["ausstattung"]; !reflect.DeepEqual(got, []string{}) {
		t.Fatalf("ausstattung must serialize as an empty list, got %#v", got)
	}
	if got := vehicle["images"]; !reflect.DeepEqual(got, []string{}) {
		t.Fatalf("images must serialize as an empty list, got %#v", got)
	}
}

func TestBuild_ListFieldsMarshalAsArrays(t *testing.T) {
	data, err := json.Marshal(Build(dom.Parse("")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"ausstattung":[]`) {
		t.Fatalf("expected empty array in JSON, got %s", data)
	}
}
