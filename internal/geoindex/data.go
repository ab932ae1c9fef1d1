package geoindex

import "geowatch/internal/model"

// The reference table covers the Casablanca conurbation: the eight
// arrondissement prefectures of the city plus the independent Mohammedia,
// Medouna and Nouaceur units. Every commune belongs to exactly one
// jurisdiction and jurisdictions never share a commune, so the tables
// below form a partition. The maps are populated once at package init and
// never written afterwards.

// Jurisdiction is an arrondissement grouping or an independent
// prefecture-level unit. Prefecture carries the full human-readable label,
// Short the collapsed city-level form shared by every arrondissement of
// the same city.
type Jurisdiction struct {
	Name       string
	Prefecture string
	Short      string
}

const (
	shortCasablanca = "Casablanca"
	shortMohammedia = "Mohammedia"
	shortMediouna   = "Médiouna"
	shortNouaceur   = "Nouaceur"
)

// jurisdictions indexes every unit by its canonical name.
var jurisdictions = map[string]Jurisdiction{
	"Casablanca-Anfa":           {Name: "Casablanca-Anfa", Prefecture: "Préfecture d'arrondissements de Casablanca-Anfa", Short: shortCasablanca},
	"Aïn Chock":                 {Name: "Aïn Chock", Prefecture: "Préfecture d'arrondissements d'Aïn Chock", Short: shortCasablanca},
	"Aïn Sebaâ - Hay Mohammadi": {Name: "Aïn Sebaâ - Hay Mohammadi", Prefecture: "Préfecture d'arrondissements d'Aïn Sebaâ - Hay Mohammadi", Short: shortCasablanca},
	"Al Fida - Mers Sultan":     {Name: "Al Fida - Mers Sultan", Prefecture: "Préfecture d'arrondissements d'Al Fida - Mers Sultan", Short: shortCasablanca},
	"Moulay Rachid":             {Name: "Moulay Rachid", Prefecture: "Préfecture d'arrondissements de Moulay Rachid", Short: shortCasablanca},
	"Sidi Bernoussi":            {Name: "Sidi Bernoussi", Prefecture: "Préfecture d'arrondissements de Sidi Bernoussi", Short: shortCasablanca},
	"Ben M'Sick":                {Name: "Ben M'Sick", Prefecture: "Préfecture d'arrondissements de Ben M'Sick", Short: shortCasablanca},
	"Hay Hassani":               {Name: "Hay Hassani", Prefecture: "Préfecture d'arrondissements de Hay Hassani", Short: shortCasablanca},
	"Mohammedia":                {Name: "Mohammedia", Prefecture: "Préfecture de Mohammedia", Short: shortMohammedia},
	"Médiouna":                  {Name: "Médiouna", Prefecture: "Province de Médiouna", Short: shortMediouna},
	"Nouaceur":                  {Name: "Nouaceur", Prefecture: "Province de Nouaceur", Short: shortNouaceur},
}

// jurisdictionByCommune maps each canonical commune name onto the unit
// that oversees it.
var jurisdictionByCommune = map[string]string{
	"Anfa":           "Casablanca-Anfa",
	"Maârif":         "Casablanca-Anfa",
	"Sidi Belyout":   "Casablanca-Anfa",
	"Aïn Chock":      "Aïn Chock",
	"Aïn Sebaâ":      "Aïn Sebaâ - Hay Mohammadi",
	"Hay Mohammadi":  "Aïn Sebaâ - Hay Mohammadi",
	"Roches Noires":  "Aïn Sebaâ - Hay Mohammadi",
	"Al Fida":        "Al Fida - Mers Sultan",
	"Mers Sultan":    "Al Fida - Mers Sultan",
	"Moulay Rachid":  "Moulay Rachid",
	"Sidi Othmane":   "Moulay Rachid",
	"Sidi Bernoussi": "Sidi Bernoussi",
	"Sidi Moumen":    "Sidi Bernoussi",
	"Ben M'Sick":     "Ben M'Sick",
	"Sbata":          "Ben M'Sick",
	"Hay Hassani":    "Hay Hassani",
	"Mohammedia":     "Mohammedia",
	"Aïn Harrouda":   "Mohammedia",
	"Médiouna":       "Médiouna",
	"Tit Mellil":     "Médiouna",
	"Nouaceur":       "Nouaceur",
	"Bouskoura":      "Nouaceur",
	"Dar Bouazza":    "Nouaceur",
}

// aliases maps spellings seen in field data onto canonical commune names.
// Accent-stripped forms dominate because mobile keyboards rarely produce
// the French diacritics. Alias targets are themselves canonical, which
// keeps Normalize idempotent.
var aliases = map[string]string{
	"Ain Chock":     "Aïn Chock",
	"Aïn Chok":      "Aïn Chock",
	"Ain Sebaa":     "Aïn Sebaâ",
	"Aïn Sebaa":     "Aïn Sebaâ",
	"Maarif":        "Maârif",
	"Ben Msick":     "Ben M'Sick",
	"Ben M'sick":    "Ben M'Sick",
	"Ain Harrouda":  "Aïn Harrouda",
	"Mediouna":      "Médiouna",
	"Casa-Anfa":     "Anfa",
	"Sidi Othman":   "Sidi Othmane",
	"Hay Mohammedi": "Hay Mohammadi",
}

// coordinates holds a representative point per commune, used for camera
// framing and as the seed of the padded bounds lookups.
var coordinates = map[string]model.GeoPoint{
	"Anfa":           {Lat: 33.5928, Lng: -7.6388},
	"Maârif":         {Lat: 33.5731, Lng: -7.6433},
	"Sidi Belyout":   {Lat: 33.5970, Lng: -7.6114},
	"Aïn Chock":      {Lat: 33.5441, Lng: -7.5999},
	"Aïn Sebaâ":      {Lat: 33.6167, Lng: -7.5333},
	"Hay Mohammadi":  {Lat: 33.5906, Lng: -7.5592},
	"Roches Noires":  {Lat: 33.6052, Lng: -7.5757},
	"Al Fida":        {Lat: 33.5733, Lng: -7.5997},
	"Mers Sultan":    {Lat: 33.5790, Lng: -7.6133},
	"Moulay Rachid":  {Lat: 33.5650, Lng: -7.5618},
	"Sidi Othmane":   {Lat: 33.5611, Lng: -7.5752},
	"Sidi Bernoussi": {Lat: 33.6103, Lng: -7.5025},
	"Sidi Moumen":    {Lat: 33.5900, Lng: -7.5250},
	"Ben M'Sick":     {Lat: 33.5570, Lng: -7.5866},
	"Sbata":          {Lat: 33.5500, Lng: -7.5940},
	"Hay Hassani":    {Lat: 33.5601, Lng: -7.6703},
	"Mohammedia":     {Lat: 33.6866, Lng: -7.3830},
	"Aïn Harrouda":   {Lat: 33.6372, Lng: -7.4453},
	"Médiouna":       {Lat: 33.4533, Lng: -7.5158},
	"Tit Mellil":     {Lat: 33.5530, Lng: -7.4870},
	"Nouaceur":       {Lat: 33.3669, Lng: -7.5786},
	"Bouskoura":      {Lat: 33.4489, Lng: -7.6486},
	"Dar Bouazza":    {Lat: 33.5153, Lng: -7.7614},
}

// communesByJurisdiction is derived from jurisdictionByCommune at init so
// the two views can never drift apart.
var communesByJurisdiction = func() map[string][]string {
	out := make(map[string][]string, len(jurisdictions))
	for commune, j := range jurisdictionByCommune {
		out[j] = append(out[j], commune)
	}
	return out
}()
