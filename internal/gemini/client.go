package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cleansync-worker/internal/categories"
	"cleansync-worker/pkg/models"
)

const (
	DefaultModel   = "gemini-3-pro-preview"
	DefaultKeyName = "gemini"

	defaultBaseURL      = "https://generativelanguage.googleapis.com/v1alpha"
	defaultPollInterval = 2 * time.Second
	cacheTTL            = "86400s"

	defaultTemperature = 0.3
	defaultTopP        = 0.9
)

// ConfigSource expose les réglages modifiables à chaud consommés par le client
type ConfigSource interface {
	// APIKeyValue retourne la valeur de la clé nommée, "" si non configurée
	APIKeyValue(ctx context.Context, name string) (string, error)
	// SystemPrompt retourne l'override du prompt système s'il existe
	SystemPrompt(ctx context.Context) (string, bool)
	// Overrides retourne les réglages de génération stockés
	Overrides(ctx context.Context) models.GenerationOverrides
}

// ClientConfig contient la configuration du client Gemini
type ClientConfig struct {
	Model         string
	KeyName       string
	BaseURL       string        // endpoint API, surchargé dans les tests
	DefaultPrompt string        // prompt système par défaut (prompt.txt)
	PollInterval  time.Duration // intervalle de polling des batch jobs
	HTTPClient    *http.Client
}

// Client construit les requêtes Gemini (texte + pièce jointe + schéma),
// les envoie et normalise les réponses. Sans état par job: seul le cache
// d'instructions est partagé.
type Client struct {
	model         string
	keyName       string
	baseURL       string
	defaultPrompt string
	pollInterval  time.Duration
	httpClient    *http.Client
	settings      ConfigSource
	cache         *InstructionCache
}

func NewClient(cfg *ClientConfig, settings ConfigSource) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	c := &Client{
		model:         cfg.Model,
		keyName:       cfg.KeyName,
		baseURL:       cfg.BaseURL,
		defaultPrompt: cfg.DefaultPrompt,
		pollInterval:  cfg.PollInterval,
		httpClient:    cfg.HTTPClient,
		settings:      settings,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.keyName == "" {
		c.keyName = DefaultKeyName
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	c.cache = NewInstructionCache(c.createCachedContent)
	return c
}

// Types wire de l'API Generative Language (v1alpha, REST)

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text            string           `json:"text,omitempty"`
	InlineData      *blob            `json:"inline_data,omitempty"`
	MediaResolution *mediaResolution `json:"media_resolution,omitempty"`
}

type blob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"` // encodé base64 par encoding/json
}

type mediaResolution struct {
	Level string `json:"level"`
}

type generationConfig struct {
	Temperature        float64                `json:"temperature"`
	TopP               float64                `json:"top_p"`
	ResponseMIMEType   string                 `json:"response_mime_type,omitempty"`
	ResponseJSONSchema map[string]interface{} `json:"response_json_schema,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generation_config"`
	CachedContent    string           `json:"cached_content,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type apiErrorBody struct {
	Error apiErrorDetail `json:"error"`
}

// resolveAPIKey cherche la clé dans l'environnement puis dans le config store
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if env := os.Getenv("GEMINI_API_KEY"); env != "" {
		return env, nil
	}
	stored, err := c.settings.APIKeyValue(ctx, c.keyName)
	if err != nil {
		return "", &ServiceError{
			Message:   fmt.Sprintf("failed to read API key: %v", err),
			Source:    SourceProvider,
			Reason:    "missing_api_key",
			Retryable: false,
		}
	}
	if stored == "" {
		return "", &ServiceError{
			Message:   "Gemini API key is not configured. Set GEMINI_API_KEY or add one via /api/admin/api-keys.",
			Source:    SourceProvider,
			Reason:    "missing_api_key",
			Retryable: false,
		}
	}
	return stored, nil
}

// promptText retourne le prompt système effectif (override ou défaut)
func (c *Client) promptText(ctx context.Context) string {
	if override, ok := c.settings.SystemPrompt(ctx); ok {
		return override
	}
	return c.defaultPrompt
}

// doPost envoie une requête JSON et décode la réponse, en classifiant
// les échecs transport et provider
func (c *Client) doPost(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return newParseError(fmt.Sprintf("failed to encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return newTransportError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, out)
}

func (c *Client) doGet(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newTransportError(err)
	}
	return c.doRequest(req, out)
}

func (c *Client) doRequest(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return newTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body apiErrorBody
		reason := ""
		message := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
			reason = body.Error.Status
			message = body.Error.Message
		}
		return newProviderError(resp.StatusCode, reason, message)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return newParseError(fmt.Sprintf("failed to decode provider response: %v", err))
	}
	return nil
}

// createCachedContent crée un contexte réutilisable côté provider pour un
// texte d'instruction; utilisé par le cache d'instructions
func (c *Client) createCachedContent(ctx context.Context, label, instruction string) (string, error) {
	key, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"model":        "models/" + c.model,
		"display_name": "cleansync-" + label,
		"ttl":          cacheTTL,
		"contents": []content{{
			Role:  "user",
			Parts: []part{{Text: instruction}},
		}},
	}

	var created struct {
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/cachedContents?key=%s", c.baseURL, key)
	if err := c.doPost(ctx, url, body, &created); err != nil {
		return "", err
	}
	return created.Name, nil
}

// buildGenerationConfig applique les valeurs par défaut puis les overrides stockés
func (c *Client) buildGenerationConfig(ctx context.Context, schema map[string]interface{}) generationConfig {
	cfg := generationConfig{
		Temperature:      defaultTemperature,
		TopP:             defaultTopP,
		ResponseMIMEType: "application/json",
	}
	overrides := c.settings.Overrides(ctx)
	if overrides.Temperature != nil {
		cfg.Temperature = *overrides.Temperature
	}
	if overrides.TopP != nil {
		cfg.TopP = *overrides.TopP
	}
	cfg.ResponseJSONSchema = schema
	return cfg
}

// mediaResolutionValue normalise un niveau de résolution en valeur d'enum API
func mediaResolutionValue(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return "MEDIA_RESOLUTION_LOW"
	case "medium":
		return "MEDIA_RESOLUTION_MEDIUM"
	case "high":
		return "MEDIA_RESOLUTION_HIGH"
	default:
		return ""
	}
}

// mediaResolutionFor choisit la fidélité selon le type de média: plus haute
// pour les images fixes que pour les documents paginés
func mediaResolutionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return mediaResolutionValue("high")
	case mimeType == "application/pdf":
		return mediaResolutionValue("medium")
	default:
		return ""
	}
}

// mimeTypeFor devine le type MIME à partir du nom de fichier
func mimeTypeFor(filename string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		// retirer les paramètres éventuels (charset)
		if i := strings.Index(t, ";"); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return "application/octet-stream"
}

// callModel envoie une requête generateContent et retourne le texte brut
func (c *Client) callModel(ctx context.Context, contents []content, schema map[string]interface{}, cachedContent string) (string, error) {
	key, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	req := generateRequest{
		Contents:         contents,
		GenerationConfig: c.buildGenerationConfig(ctx, schema),
		CachedContent:    cachedContent,
	}

	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, key)
	if err := c.doPost(ctx, url, req, &resp); err != nil {
		return "", err
	}
	return extractText(&resp)
}

// extractText concatène les parties texte du premier candidat
func extractText(resp *generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", newParseError("no candidates in response")
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	if len(parts) == 0 {
		return "", newParseError("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

const floorplanInstruction = "Du får en plantegning som bilde eller PDF. Ekstraher et strukturert JSON-objekt med nøkkelen 'rooms'. " +
	"Hver room skal ha feltene id, name, type, floor, area_m2 (kan være null) og notes (kan være tomt). " +
	"Svar kun med JSON."

// AnalyzeFloorplan extrait la liste des pièces d'une plantegning
func (c *Client) AnalyzeFloorplan(ctx context.Context, data []byte, filename string, options models.FloorPlanOptions) ([]models.Room, error) {
	mimeType := mimeTypeFor(filename)
	baseInstruction := c.promptText(ctx) + "\n" + floorplanInstruction

	cachedContent, cached := c.cache.Resolve(ctx, "floorplan-analysis", baseInstruction)

	details := []string{
		fmt.Sprintf("has_room_names=%t, has_area=%t, reference_unit=%s.",
			options.HasRoomNames, options.HasArea, options.ReferenceUnit),
	}
	if !options.HasArea {
		switch {
		case options.ReferenceLabel != "" && options.ReferenceWidth != nil:
			details = append(details, fmt.Sprintf("Bruk referansemål: %s med bredde %g%s for å estimere m².",
				options.ReferenceLabel, *options.ReferenceWidth, options.ReferenceUnit))
		case options.ReferenceWidth != nil:
			details = append(details, fmt.Sprintf("Bruk referansemål med bredde %g%s for å estimere m².",
				*options.ReferenceWidth, options.ReferenceUnit))
		case options.ReferenceLabel != "":
			details = append(details, fmt.Sprintf("Bruk referansemål: %s for å estimere m².", options.ReferenceLabel))
		}
	}

	configPayload, err := json.Marshal(map[string]interface{}{
		"floorplan_config": map[string]interface{}{
			"has_room_names":  options.HasRoomNames,
			"has_area":        options.HasArea,
			"reference_unit":  options.ReferenceUnit,
			"reference_label": options.ReferenceLabel,
			"reference_width": options.ReferenceWidth,
		},
	})
	if err != nil {
		return nil, newParseError(fmt.Sprintf("failed to encode options: %v", err))
	}

	var parts []part
	if !cached {
		parts = append(parts, part{Text: baseInstruction})
	}

	attachment := part{InlineData: &blob{MIMEType: mimeType, Data: data}}
	level := mediaResolutionFor(mimeType)
	if override := mediaResolutionValue(c.settings.Overrides(ctx).MediaResolution); override != "" {
		level = override
	}
	if level != "" {
		attachment.MediaResolution = &mediaResolution{Level: level}
	}

	parts = append(parts,
		part{Text: string(configPayload)},
		part{Text: strings.Join(details, "\n")},
		attachment,
	)

	raw, err := c.callModel(ctx, []content{{Role: "user", Parts: parts}}, floorPlanSchema(), cachedContent)
	if err != nil {
		return nil, err
	}
	return decodeExtraction(raw)
}

const planInstruction = "Du får en liste med rom i JSON-format. Returner et JSON-objekt med nøklene 'entries', " +
	"'total_area_m2' og 'template_name'. " +
	"Hver entry skal inneholde room_name, area_m2, floor, description, frequency (map med MAN..SØN), " +
	"og optional notes. Svar kun som JSON."

// buildPlanParts construit les parts communes aux générations de plan
// (appel unitaire et batch)
func (c *Client) buildPlanParts(ctx context.Context, planPayload, templateLabel, category string) ([]part, string) {
	baseInstruction := c.promptText(ctx) + "\n" + planInstruction
	cachedContent, cached := c.cache.Resolve(ctx, "plan-generation", baseInstruction)

	var parts []part
	if !cached {
		parts = append(parts, part{Text: baseInstruction})
	}
	parts = append(parts,
		part{Text: planPayload},
		part{Text: fmt.Sprintf("Bruk mal: %s.", templateLabel)},
	)
	if category != "" {
		parts = append(parts, part{Text: fmt.Sprintf("Plankategori: %s.", categories.Label(category))})
	}
	return parts, cachedContent
}

// GeneratePlan synthétise un plan de nettoyage à partir des pièces extraites
func (c *Client) GeneratePlan(ctx context.Context, rooms []models.Room, templateName, category string) (*models.CleaningPlan, error) {
	templateLabel := templateName
	if templateLabel == "" {
		templateLabel = "Cleansync Standard"
	}
	payload, err := json.Marshal(map[string]interface{}{"rooms": rooms})
	if err != nil {
		return nil, newParseError(fmt.Sprintf("failed to encode rooms: %v", err))
	}

	parts, cachedContent := c.buildPlanParts(ctx, string(payload), templateLabel, category)
	raw, err := c.callModel(ctx, []content{{Role: "user", Parts: parts}}, planSchema(), cachedContent)
	if err != nil {
		return nil, err
	}
	return decodePlan(raw)
}

const convertInstruction = "Normaliser teksten til Cleansync-standard og returner JSON med samme format som generate_plan " +
	"(entries/total_area_m2/template_name)."

// ConvertPlan normalise un plan externe en plan Cleansync
func (c *Client) ConvertPlan(ctx context.Context, rawText string) (*models.CleaningPlan, error) {
	baseInstruction := c.promptText(ctx) + "\n" + convertInstruction
	cachedContent, cached := c.cache.Resolve(ctx, "plan-converter", baseInstruction)

	var parts []part
	if !cached {
		parts = append(parts, part{Text: baseInstruction})
	}
	parts = append(parts, part{Text: rawText})

	raw, err := c.callModel(ctx, []content{{Role: "user", Parts: parts}}, planSchema(), cachedContent)
	if err != nil {
		return nil, err
	}
	return decodePlan(raw)
}

// AnalyzeTemplate dérive un libellé de template depuis le nom de fichier
func (c *Client) AnalyzeTemplate(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ReplaceAll(stem, "_", " ")
}

// Cache retourne le cache d'instructions partagé (exposé pour les tests)
func (c *Client) Cache() *InstructionCache {
	return c.cache
}

func init() {
	// garantit les types MIME nécessaires même sur un système sans table mime
	if err := mime.AddExtensionType(".pdf", "application/pdf"); err != nil {
		log.Printf("gemini: failed to register pdf mime type: %v", err)
	}
}
