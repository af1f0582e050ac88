package listing

import (
	"strings"

	"github.com/baranw/adscraper/internal/dom"
)

// Listing is the nested field mapping handed to the persistence layer. Top
// level keys are the closed section names; each section maps field name to
// extracted value. Absent fields and empty sections are omitted outright.
type Listing map[string]any

// descriptionExcludeIDs are subtrees stripped from the rendered description
// markup.
var descriptionExcludeIDs = []string{"mobile-link"}

// field pairs a section key with the selector that feeds it.
type field struct {
	key string
	sel string
}

var vehicleFields = []field{
	{"title", "#viewad-title"},
	{"marke", "#viewad-details > div > ul:nth-child(1) > li:nth-child(1) > span"},
	{"modell", "#viewad-details > div > ul:nth-child(1) > li:nth-child(2) > span"},
	{"kilometerstand", "#viewad-details > div > ul:nth-child(1) > li:nth-child(3) > span"},
	{"fahrzeugzustand", "#viewad-details > div > ul:nth-child(1) > li:nth-child(4) > span"},
	{"erstzulassung", "#viewad-details > div > ul:nth-child(1) > li:nth-child(5) > span"},
	{"kraftstoffart", "#viewad-details > div > ul:nth-child(1) > li:nth-child(6) > span"},
	{"leistung", "#viewad-details > div > ul:nth-child(1) > li:nth-child(7) > span"},
	{"getriebe", "#viewad-details > div > ul:nth-child(2) > li:nth-child(1) > span"},
	{"fahrzeugtyp", "#viewad-details > div > ul:nth-child(2) > li:nth-child(2) > span"},
	{"anzahl_tueren", "#viewad-details > div > ul:nth-child(2) > li:nth-child(3) > span"},
	{"umweltplakette", "#viewad-details > div > ul:nth-child(2) > li:nth-child(4) > span"},
	{"schadstoffklasse", "#viewad-details > div > ul:nth-child(2) > li:nth-child(5) > span"},
	{"aussenfarbe", "#viewad-details > div > ul:nth-child(2) > li:nth-child(6) > span"},
	{"material_innenausstattung", "#viewad-details > div > ul:nth-child(2) > li:nth-child(7) > span"},
}

var sellerFields = []field{
	{"name", "#viewad-contact > div > ul > li:nth-child(1) > span > span.text-body-regular-strong.text-force-linebreak.userprofile-vip > a"},
	{"nutzertyp", "#viewad-contact > div > ul > li:nth-child(1) > span > span:nth-child(2) > span"},
	{"aktiv_seit", "#viewad-contact > div > ul > li:nth-child(1) > span > span:nth-child(3) > span"},
}

const activeSincePrefix = "aktiv seit "

// Build assembles the full listing mapping from a parsed page.
func Build(root *dom.Node) Listing {
	vehicle := map[string]any{}
	for _, f := range vehicleFields {
		if value, ok := Text(root, f.sel); ok {
			vehicle[f.key] = value
		}
	}

	if price, ok := Text(root, "#viewad-price"); ok {
		vehicle["preis"] = map[string]any{"wert": price}
	}

	vehicle["ausstattung"] = nonNil(ListItems(root, "#viewad-configuration > div > ul"))

	if desc := Select(root, "#viewad-description-text"); desc != nil {
		vehicle["Beschreibung"] = dom.RenderInner(desc, descriptionExcludeIDs...)
	}

	vehicle["images"] = nonNil(Images(root))

	ad := map[string]any{}
	if category, ok := Breadcrumb(root); ok {
		ad["kategorie"] = category
	}
	if adID, ok := Text(root, "#viewad-ad-id-box > ul > li:nth-child(2)"); ok {
		ad["anzeige_id"] = adID
	}

	seller := map[string]any{}
	for _, f := range sellerFields {
		value, ok := Text(root, f.sel)
		if !ok {
			continue
		}
		if f.key == "aktiv_seit" && strings.HasPrefix(strings.ToLower(value), activeSincePrefix) {
			value = value[len(activeSincePrefix):]
		}
		seller[f.key] = value
	}
	if userID, ok := UserID(root); ok {
		seller["userid"] = userID
	}
	if location, ok := Location(root); ok {
		seller["ort"] = location
	}

	result := Listing{}
	if len(vehicle) > 0 {
		result["fahrzeug"] = vehicle
	}
	if len(ad) > 0 {
		result["anzeige"] = ad
	}
	if len(seller) > 0 {
		result["verkaeufer"] = seller
	}
	return result
}

// nonNil keeps always-present list fields serializing as [] rather than null.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
