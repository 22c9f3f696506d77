package gemini

import (
	"cleansync-worker/pkg/models"
	"errors"
	"fmt"
)

// Sources d'erreur classifiées
const (
	SourceProvider = "gemini"
	SourceParse    = "parse"
)

// retryableStatusCodes est l'ensemble fixe des codes transport pour lesquels
// une nouvelle tentative a un sens (rate-limit, indisponibilité transitoire).
var retryableStatusCodes = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// ServiceError est l'échec classifié renvoyé par le client Gemini.
// Il n'est jamais propagé hors du runner sous forme brute: il est
// recopié dans le detail du job.
type ServiceError struct {
	Message    string
	Source     string // SourceProvider ou SourceParse
	StatusCode int    // code transport, 0 si inconnu
	Reason     string // code d'erreur fourni par le provider
	Retryable  bool
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Source, e.Message)
}

// Detail convertit l'erreur en diagnostic structuré pour le job record
func (e *ServiceError) Detail() *models.FailureDetail {
	return &models.FailureDetail{
		Message:    e.Message,
		Source:     e.Source,
		StatusCode: e.StatusCode,
		Reason:     e.Reason,
		Retryable:  e.Retryable,
	}
}

// newProviderError classifie un échec côté provider à partir du code transport
func newProviderError(statusCode int, reason, message string) *ServiceError {
	return &ServiceError{
		Message:    message,
		Source:     SourceProvider,
		StatusCode: statusCode,
		Reason:     reason,
		Retryable:  retryableStatusCodes[statusCode],
	}
}

// newTransportError classifie un échec réseau sans réponse du provider.
// Pas de code transport: on considère l'indisponibilité comme transitoire.
func newTransportError(err error) *ServiceError {
	return &ServiceError{
		Message:   err.Error(),
		Source:    SourceProvider,
		Reason:    "transport",
		Retryable: true,
	}
}

// newParseError classifie un échec de validation locale, jamais retryable
func newParseError(message string) *ServiceError {
	return &ServiceError{
		Message:   message,
		Source:    SourceParse,
		Retryable: false,
	}
}

// Classify retourne l'erreur classifiée sous-jacente, ou enveloppe une
// erreur brute en échec provider non-retryable.
func Classify(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &ServiceError{
		Message:   err.Error(),
		Source:    SourceProvider,
		Retryable: false,
	}
}
