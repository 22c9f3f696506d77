package gemini

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cleansync-worker/pkg/models"
)

// Décodage en deux étapes: décodage strict vers le type cible d'abord,
// repli permissif ensuite. Le repli est déterministe et sans effet de bord:
// un item malformé est ignoré en entier, jamais ajouté partiellement.

// dayAliases accepte les variantes de jours rencontrées dans les réponses
// historiques (codes norvégiens longs/courts, codes anglais).
var dayAliases = map[string]string{
	"MAN": "MAN", "MANDAG": "MAN", "MON": "MAN", "MONDAY": "MAN",
	"TIRS": "TIRS", "TIR": "TIRS", "TIRSDAG": "TIRS", "TUE": "TIRS", "TUESDAY": "TIRS",
	"ONS": "ONS", "ONSDAG": "ONS", "WED": "ONS", "WEDNESDAY": "ONS",
	"TORS": "TORS", "TOR": "TORS", "TORSDAG": "TORS", "THU": "TORS", "THURSDAY": "TORS",
	"FRE": "FRE", "FREDAG": "FRE", "FRI": "FRE", "FRIDAY": "FRE",
	"LØR": "LØR", "LOR": "LØR", "LØRDAG": "LØR", "SAT": "LØR", "SATURDAY": "LØR",
	"SØN": "SØN", "SON": "SØN", "SØNDAG": "SØN", "SUN": "SØN", "SUNDAY": "SØN",
}

// Tables d'alias de champs observés dans les réponses du modèle
var (
	entriesAliases     = []string{"entries", "rows", "plan_entries"}
	roomsAliases       = []string{"rooms", "room_list", "items"}
	roomNameAliases    = []string{"room_name", "name", "room", "romnavn"}
	areaAliases        = []string{"area_m2", "area", "size_m2", "areal", "areal_m2"}
	floorAliases       = []string{"floor", "etg", "etasje", "level"}
	descriptionAliases = []string{"description", "desc", "beskrivelse"}
	notesAliases       = []string{"notes", "note", "merknad"}
	frequencyAliases   = []string{"frequency", "freq", "days", "frekvens"}
	totalAreaAliases   = []string{"total_area_m2", "total_area", "totalareal"}
	templateAliases    = []string{"template_name", "template", "mal"}
	roomTypeAliases    = []string{"type", "room_type", "romtype"}
)

func canonicalDay(raw string) (string, bool) {
	day, ok := dayAliases[strings.ToUpper(strings.TrimSpace(raw))]
	return day, ok
}

// stripCodeFence retire un éventuel balisage markdown autour du JSON
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// coerceBool accepte les formes booléennes lâches renvoyées par le modèle
func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "x", "yes", "on", "ja":
			return true
		}
		return false
	default:
		return false
	}
}

// coerceFloat parse un nombre présenté de façon permissive: séparateur
// décimal virgule, unité en suffixe ("12,5 m2"). Une valeur inexploitable
// est traitée comme absente, pas comme une erreur.
func coerceFloat(value interface{}) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		s := strings.TrimSpace(v)
		s = strings.ReplaceAll(s, ",", ".")
		// couper au premier caractère non numérique (unité en suffixe)
		end := len(s)
		for i, r := range s {
			if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
				end = i
				break
			}
		}
		s = strings.TrimSpace(s[:end])
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func firstField(m map[string]interface{}, aliases []string) (interface{}, bool) {
	for _, key := range aliases {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]interface{}, aliases []string) string {
	v, ok := firstField(m, aliases)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func floatField(m map[string]interface{}, aliases []string) *float64 {
	v, ok := firstField(m, aliases)
	if !ok {
		return nil
	}
	return coerceFloat(v)
}

// decodeExtraction normalise la réponse d'une analyse de plantegning
func decodeExtraction(raw string) ([]models.Room, error) {
	var strict models.FloorPlanExtraction
	if err := json.Unmarshal([]byte(raw), &strict); err == nil && len(strict.Rooms) > 0 {
		return strict.Rooms, nil
	}

	cleaned := stripCodeFence(raw)
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, newParseError(fmt.Sprintf("floorplan response is not valid JSON: %v", err))
	}

	rawRooms, ok := firstField(doc, roomsAliases)
	if !ok {
		return nil, newParseError("floorplan response contains no rooms")
	}
	list, ok := rawRooms.([]interface{})
	if !ok {
		return nil, newParseError("floorplan response rooms field is not a list")
	}

	rooms := make([]models.Room, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue // item malformé: ignoré en entier
		}
		name := stringField(entry, roomNameAliases)
		if name == "" {
			continue
		}
		room := models.Room{
			ID:     stringField(entry, []string{"id"}),
			Name:   name,
			Type:   stringField(entry, roomTypeAliases),
			Floor:  stringField(entry, floorAliases),
			AreaM2: floatField(entry, areaAliases),
			Notes:  stringField(entry, notesAliases),
		}
		if room.ID == "" {
			room.ID = strconv.Itoa(i + 1)
		}
		rooms = append(rooms, room)
	}

	if len(rooms) == 0 {
		return nil, newParseError("floorplan response contains no usable rooms")
	}
	return rooms, nil
}

// strictPlanValid vérifie que le décodage strict a produit un plan conforme:
// entrées présentes, noms de pièces renseignés, jours canoniques uniquement.
func strictPlanValid(plan *models.CleaningPlan) bool {
	if len(plan.Entries) == 0 {
		return false
	}
	canonical := map[string]bool{}
	for _, day := range models.AllDays {
		canonical[day] = true
	}
	for _, entry := range plan.Entries {
		if entry.RoomName == "" {
			return false
		}
		for day := range entry.Frequency {
			if !canonical[day] {
				return false
			}
		}
	}
	return true
}

// decodePlan normalise la réponse d'une génération de plan
func decodePlan(raw string) (*models.CleaningPlan, error) {
	var strict models.CleaningPlan
	if err := json.Unmarshal([]byte(raw), &strict); err == nil && strictPlanValid(&strict) {
		return &strict, nil
	}

	cleaned := stripCodeFence(raw)
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, newParseError(fmt.Sprintf("plan response is not valid JSON: %v", err))
	}

	rawEntries, ok := firstField(doc, entriesAliases)
	if !ok {
		return nil, newParseError("plan response contains no entries")
	}
	list, ok := rawEntries.([]interface{})
	if !ok {
		return nil, newParseError("plan response entries field is not a list")
	}

	plan := &models.CleaningPlan{
		TemplateName: stringField(doc, templateAliases),
	}
	for _, item := range list {
		entryMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		roomName := stringField(entryMap, roomNameAliases)
		if roomName == "" {
			continue
		}
		entry := models.CleaningPlanEntry{
			RoomName:    roomName,
			AreaM2:      floatField(entryMap, areaAliases),
			Floor:       stringField(entryMap, floorAliases),
			Description: stringField(entryMap, descriptionAliases),
			Notes:       stringField(entryMap, notesAliases),
			Frequency:   map[string]bool{},
		}
		if rawFreq, ok := firstField(entryMap, frequencyAliases); ok {
			if freqMap, ok := rawFreq.(map[string]interface{}); ok {
				for rawDay, rawValue := range freqMap {
					if day, ok := canonicalDay(rawDay); ok {
						entry.Frequency[day] = coerceBool(rawValue)
					}
				}
			}
		}
		plan.Entries = append(plan.Entries, entry)
	}

	if len(plan.Entries) == 0 {
		return nil, newParseError("plan response contains no usable entries")
	}

	if total := floatField(doc, totalAreaAliases); total != nil {
		plan.TotalAreaM2 = *total
	} else {
		// total absent: somme des surfaces connues
		for _, entry := range plan.Entries {
			if entry.AreaM2 != nil {
				plan.TotalAreaM2 += *entry.AreaM2
			}
		}
	}

	return plan, nil
}
