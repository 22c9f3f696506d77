package jobs

import (
	"errors"
	"sync"
	"time"
)

// ErrJobNotFound est retournée quand l'id de job est inconnu du registre
var ErrJobNotFound = errors.New("job not found")

// Record est le contrat des records détenus par un registre
type Record[T any] interface {
	IsTerminal() bool
	Clone() T
	LastUpdated() time.Time
}

// Registry détient les records de jobs derrière un verrou. Les lectures
// retournent des copies détachées; une mutation est appliquée comme une
// transition atomique, et les records terminaux sont immuables.
type Registry[T Record[T]] struct {
	mu      sync.RWMutex
	records map[string]T
}

func NewRegistry[T Record[T]]() *Registry[T] {
	return &Registry[T]{
		records: make(map[string]T),
	}
}

// Put enregistre un nouveau record
func (r *Registry[T]) Put(id string, record T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = record
}

// Get retourne une copie du record, ou ErrJobNotFound
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		var zero T
		return zero, ErrJobNotFound
	}
	return record.Clone(), nil
}

// Update applique une transition atomique au record. Les mutations sur un
// record déjà terminal sont refusées (no-op). Retourne false si l'id est
// inconnu ou le record terminal.
func (r *Registry[T]) Update(id string, mutate func(T)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok || record.IsTerminal() {
		return false
	}
	mutate(record)
	return true
}

// Len retourne le nombre de records détenus
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// PruneTerminal supprime les records terminaux plus vieux que cutoff et
// retourne les ids supprimés
func (r *Registry[T]) PruneTerminal(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []string
	for id, record := range r.records {
		if record.IsTerminal() && record.LastUpdated().Before(cutoff) {
			delete(r.records, id)
			pruned = append(pruned, id)
		}
	}
	return pruned
}
