package models

// AllDays liste les jours de la semaine dans l'ordre du plan (codes norvégiens).
var AllDays = []string{"MAN", "TIRS", "ONS", "TORS", "FRE", "LØR", "SØN"}

// Room représente une pièce extraite d'une plantegning
type Room struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Type   string   `json:"type"` // high level room type e.g. office, corridor, wc
	Floor  string   `json:"floor,omitempty"`
	AreaM2 *float64 `json:"area_m2,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// FloorPlanExtraction est la réponse structurée d'une analyse de plantegning
type FloorPlanExtraction struct {
	Rooms []Room `json:"rooms"`
}

// CleaningPlanEntry est une ligne du plan de nettoyage
type CleaningPlanEntry struct {
	RoomName    string          `json:"room_name"`
	AreaM2      *float64        `json:"area_m2"`
	Floor       string          `json:"floor,omitempty"`
	Description string          `json:"description"`
	Frequency   map[string]bool `json:"frequency"` // weekday code (MAN..SØN) -> cleaning scheduled
	Notes       string          `json:"notes,omitempty"`
}

// CleaningPlan est l'artefact produit par la génération
type CleaningPlan struct {
	Entries      []CleaningPlanEntry `json:"entries"`
	TotalAreaM2  float64             `json:"total_area_m2"`
	TemplateName string              `json:"template_name,omitempty"`
}

// FloorPlanOptions contient les options d'analyse fournies par le client
type FloorPlanOptions struct {
	HasRoomNames   bool     `json:"has_room_names"`
	HasArea        bool     `json:"has_area"`
	ReferenceLabel string   `json:"reference_label,omitempty"`
	ReferenceWidth *float64 `json:"reference_width,omitempty"`
	ReferenceUnit  string   `json:"reference_unit,omitempty"`
	PlanCategory   string   `json:"plan_category,omitempty"`
}

// DefaultFloorPlanOptions retourne les options par défaut
func DefaultFloorPlanOptions() FloorPlanOptions {
	return FloorPlanOptions{
		HasRoomNames:  true,
		HasArea:       true,
		ReferenceUnit: "m",
	}
}
