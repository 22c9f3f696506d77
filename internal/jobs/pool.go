package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
)

// TaskPool exécute les tâches de fond des jobs sur un nombre borné de
// workers. La soumission ne bloque jamais l'appelant: la création d'un job
// retourne immédiatement, le traitement suit dans le pool.

var ErrPoolStopped = errors.New("task pool is not running")

// Task est une unité de travail nommée traitée par un worker
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// PoolConfig contient la configuration du pool
type PoolConfig struct {
	WorkerCount int
	QueueSize   int
}

// DefaultPoolConfig retourne une configuration par défaut
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		WorkerCount: 3,
		QueueSize:   32,
	}
}

// TaskPool gère un pool de workers pour les tâches de génération
type TaskPool struct {
	config  *PoolConfig
	queue   chan Task
	stopCh  chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewTaskPool crée un nouveau pool de workers
func NewTaskPool(config *PoolConfig) *TaskPool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	return &TaskPool{
		config: config,
		queue:  make(chan Task, config.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// Start démarre les workers
func (p *TaskPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	log.Printf("Starting task pool with %d workers", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.runWorker(ctx, workerID)
		}(i)
	}

	p.running = true
}

// Stop arrête le pool et attend la fin des tâches en cours
func (p *TaskPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	// les remises asynchrones en attente doivent se résoudre avant la
	// fermeture de la queue, sinon elles enverraient sur un canal fermé
	close(p.stopCh)
	p.senders.Wait()
	close(p.queue)
	p.wg.Wait()
	p.running = false
	log.Println("Task pool stopped")
}

// Submit planifie une tâche sans bloquer l'appelant. Si la queue est
// pleine, la remise est déléguée à une goroutine tampon.
func (p *TaskPool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrPoolStopped
	}

	select {
	case p.queue <- task:
	default:
		// queue pleine: remise asynchrone pour ne pas bloquer l'appelant.
		// Le sender est enregistré sous le RLock, Stop l'attend donc
		// toujours avant de fermer la queue.
		p.senders.Add(1)
		go func() {
			defer p.senders.Done()
			select {
			case p.queue <- task:
			case <-p.stopCh:
				log.Printf("Task %s dropped: pool stopping", task.Name)
			}
		}()
	}
	return nil
}

func (p *TaskPool) runWorker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.runTask(ctx, workerID, task)
		}
	}
}

// runTask exécute une tâche; un panic ne tue jamais le worker. La tâche
// elle-même est responsable d'écrire son échec dans le record du job.
func (p *TaskPool) runTask(ctx context.Context, workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: task %s panicked: %v", workerID, task.Name, r)
		}
	}()
	task.Run(ctx)
}
