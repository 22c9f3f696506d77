package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cleansync-worker/pkg/models"
)

// Soumission groupée: une seule requête batchGenerateContent porte une
// sous-requête par lot de pièces, résolue de façon asynchrone côté provider
// et relevée par polling. Le mode bulk n'a pas de succès partiel: toute
// sous-réponse en erreur ou absente est fatale pour la soumission entière.

type inlinedRequest struct {
	Model   string          `json:"model"`
	Request generateRequest `json:"request"`
}

type batchCreateBody struct {
	Batch struct {
		DisplayName string `json:"display_name"`
		InputConfig struct {
			Requests struct {
				Requests []inlinedRequest `json:"requests"`
			} `json:"requests"`
		} `json:"input_config"`
	} `json:"batch"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type inlinedResponse struct {
	Response *generateResponse `json:"response,omitempty"`
	Error    *operationError   `json:"error,omitempty"`
}

type batchResult struct {
	InlinedResponses struct {
		InlinedResponses []inlinedResponse `json:"inlined_responses"`
	} `json:"inlined_responses"`
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// GeneratePlanBatch soumet tous les lots de pièces en une seule requête et
// attend le résultat. Les sous-réponses sont appariées positionnellement aux
// lots soumis.
func (c *Client) GeneratePlanBatch(ctx context.Context, roomBatches [][]models.Room, templateName, category string) ([]models.CleaningPlan, error) {
	if len(roomBatches) == 0 {
		return nil, nil
	}

	templateLabel := templateName
	if templateLabel == "" {
		templateLabel = "Cleansync Standard"
	}

	body := &batchCreateBody{}
	body.Batch.DisplayName = "cleansync-plans"
	for _, rooms := range roomBatches {
		payload, err := json.Marshal(map[string]interface{}{"rooms": rooms})
		if err != nil {
			return nil, newParseError(fmt.Sprintf("failed to encode rooms: %v", err))
		}
		parts, cachedContent := c.buildPlanParts(ctx, string(payload), templateLabel, category)
		body.Batch.InputConfig.Requests.Requests = append(body.Batch.InputConfig.Requests.Requests, inlinedRequest{
			Model: "models/" + c.model,
			Request: generateRequest{
				Contents:         []content{{Role: "user", Parts: parts}},
				GenerationConfig: c.buildGenerationConfig(ctx, planSchema()),
				CachedContent:    cachedContent,
			},
		})
	}

	key, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	var op operation
	url := fmt.Sprintf("%s/models/%s:batchGenerateContent?key=%s", c.baseURL, c.model, key)
	if err := c.doPost(ctx, url, body, &op); err != nil {
		return nil, err
	}

	op2, err := c.waitForOperation(ctx, op, key)
	if err != nil {
		return nil, err
	}

	return c.collectBatchPlans(op2, len(roomBatches))
}

// waitForOperation attend la fin d'une opération batch par polling borné.
// La suspension est coopérative: l'attente respecte l'annulation du contexte
// et ne bloque que la tâche appelante.
func (c *Client) waitForOperation(ctx context.Context, op operation, key string) (operation, error) {
	for !op.Done {
		select {
		case <-ctx.Done():
			return op, newTransportError(ctx.Err())
		case <-time.After(c.pollInterval):
		}

		url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, op.Name, key)
		var next operation
		if err := c.doGet(ctx, url, &next); err != nil {
			return op, err
		}
		op = next
	}

	if op.Error != nil {
		message := op.Error.Message
		if message == "" {
			message = "batch job failed"
		}
		return op, newProviderError(op.Error.Code, op.Error.Status, message)
	}
	return op, nil
}

// collectBatchPlans apparie les sous-réponses aux items soumis et décode
// chaque plan. Tout écart de cardinalité est une erreur de cohérence fatale.
func (c *Client) collectBatchPlans(op operation, submitted int) ([]models.CleaningPlan, error) {
	if len(op.Response) == 0 {
		return nil, newProviderError(0, "batch_no_response", "batch job returned no inline responses")
	}
	var result batchResult
	if err := json.Unmarshal(op.Response, &result); err != nil {
		return nil, newParseError(fmt.Sprintf("failed to decode batch result: %v", err))
	}

	responses := result.InlinedResponses.InlinedResponses
	if len(responses) != submitted {
		return nil, &ServiceError{
			Message:   fmt.Sprintf("batch returned %d responses for %d submitted items", len(responses), submitted),
			Source:    SourceProvider,
			Reason:    "batch_count_mismatch",
			Retryable: false,
		}
	}

	plans := make([]models.CleaningPlan, 0, submitted)
	for i, inline := range responses {
		if inline.Error != nil {
			message := inline.Error.Message
			if message == "" {
				message = fmt.Sprintf("batch item %d failed unexpectedly", i)
			}
			return nil, &ServiceError{
				Message:    message,
				Source:     SourceProvider,
				StatusCode: inline.Error.Code,
				Reason:     inline.Error.Status,
				Retryable:  false,
			}
		}
		if inline.Response == nil {
			return nil, newProviderError(0, "batch_missing_response", fmt.Sprintf("batch item %d did not return a response", i))
		}
		text, err := extractText(inline.Response)
		if err != nil {
			return nil, err
		}
		plan, err := decodePlan(text)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}
