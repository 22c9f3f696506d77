package gemini

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log"
	"strings"
	"sync"
)

// createFunc crée un contexte réutilisable côté provider pour un texte
// d'instruction donné et retourne son handle distant.
type createFunc func(ctx context.Context, label, instruction string) (string, error)

// InstructionCache associe un texte d'instruction normalisé à un handle de
// contexte distant, pour éviter de renvoyer le même texte à chaque appel.
// Partagé par tout le process; le caching est une optimisation, jamais une
// condition de correction: un échec de création est non-fatal.
type InstructionCache struct {
	mu      sync.Mutex
	handles map[string]string
	create  createFunc
}

func NewInstructionCache(create createFunc) *InstructionCache {
	return &InstructionCache{
		handles: make(map[string]string),
		create:  create,
	}
}

// cacheKey adresse l'instruction par contenu: label + empreinte du texte
func cacheKey(label, normalized string) string {
	digest := sha1.Sum([]byte(normalized))
	return label + ":" + hex.EncodeToString(digest[:])
}

// Resolve retourne le handle du contexte distant pour cette instruction,
// en le créant à la première utilisation. Retourne ("", false) si
// l'instruction est vide ou si la création échoue.
func (c *InstructionCache) Resolve(ctx context.Context, label, instruction string) (string, bool) {
	normalized := strings.TrimSpace(instruction)
	if normalized == "" {
		return "", false
	}
	key := cacheKey(label, normalized)

	c.mu.Lock()
	if handle, ok := c.handles[key]; ok {
		c.mu.Unlock()
		return handle, true
	}
	c.mu.Unlock()

	// Création hors lock: appel réseau. En cas de course sur le même texte,
	// le premier handle enregistré gagne.
	handle, err := c.create(ctx, label, normalized)
	if err != nil || handle == "" {
		if err != nil {
			log.Printf("InstructionCache: failed to create context cache %s: %v", label, err)
		}
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.handles[key]; ok {
		return existing, true
	}
	c.handles[key] = handle
	return handle, true
}

// Len retourne le nombre de handles connus
func (c *InstructionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
