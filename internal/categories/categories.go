// Package categories expose le référentiel des catégories de plan. Le
// référentiel est embarqué dans le binaire; les entrées incomplètes sont
// ignorées au chargement.
package categories

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed plan_categories.json
var rawCategories []byte

// Category est une catégorie de plan avec ses libellés localisés
type Category struct {
	ID        string `json:"id"`
	Norwegian string `json:"no"`
	English   string `json:"en"`
}

var (
	categoryList   []Category
	categoryLookup map[string]Category
)

func init() {
	var entries []Category
	if err := json.Unmarshal(rawCategories, &entries); err != nil {
		log.Printf("categories: invalid plan_categories.json: %v", err)
		entries = nil
	}

	categoryLookup = make(map[string]Category)
	for _, entry := range entries {
		if entry.ID == "" || entry.Norwegian == "" || entry.English == "" {
			continue
		}
		categoryList = append(categoryList, entry)
		categoryLookup[entry.ID] = entry
	}
}

// List retourne toutes les catégories connues
func List() []Category {
	return append([]Category(nil), categoryList...)
}

// Get retourne la catégorie identifiée, ok=false si inconnue
func Get(id string) (Category, bool) {
	category, ok := categoryLookup[id]
	return category, ok
}

// Label retourne le libellé norvégien de la catégorie, ou l'identifiant
// brut quand la catégorie est inconnue
func Label(id string) string {
	if category, ok := categoryLookup[id]; ok {
		return category.Norwegian
	}
	return id
}

// IsValid vérifie que l'identifiant référence une catégorie connue
func IsValid(id string) bool {
	_, ok := categoryLookup[id]
	return ok
}
