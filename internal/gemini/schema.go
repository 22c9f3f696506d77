package gemini

// Schémas JSON envoyés avec les requêtes pour contraindre la réponse.
// Le décodage tolérant (decode.go) reste le filet de sécurité quand le
// modèle s'écarte du schéma.

func floorPlanSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"rooms": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":      map[string]interface{}{"type": "string"},
						"name":    map[string]interface{}{"type": "string"},
						"type":    map[string]interface{}{"type": "string"},
						"floor":   map[string]interface{}{"type": "string"},
						"area_m2": map[string]interface{}{"type": []string{"number", "null"}},
						"notes":   map[string]interface{}{"type": "string"},
					},
					"required": []string{"id", "name", "type"},
				},
			},
		},
		"required": []string{"rooms"},
	}
}

func planSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"entries": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"room_name":   map[string]interface{}{"type": "string"},
						"area_m2":     map[string]interface{}{"type": []string{"number", "null"}},
						"floor":       map[string]interface{}{"type": "string"},
						"description": map[string]interface{}{"type": "string"},
						"frequency": map[string]interface{}{
							"type":                 "object",
							"additionalProperties": map[string]interface{}{"type": "boolean"},
						},
						"notes": map[string]interface{}{"type": "string"},
					},
					"required": []string{"room_name", "description", "frequency"},
				},
			},
			"total_area_m2": map[string]interface{}{"type": "number"},
			"template_name": map[string]interface{}{"type": "string"},
		},
		"required": []string{"entries", "total_area_m2"},
	}
}
