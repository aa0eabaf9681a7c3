package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// Config names the assistant project the device is registered under
type Config struct {
	// BaseURL is the REST root, e.g. https://embeddedassistant.googleapis.com
	BaseURL   string
	ProjectID string
}

// ProjectRegistrar registers the device model and device instance used for
// every query. Registering something that already exists counts as success.
type ProjectRegistrar struct {
	httpClient *http.Client
	config     Config
	logger     *zap.Logger
}

// NewProjectRegistrar creates a new registrar
func NewProjectRegistrar(httpClient *http.Client, config Config, logger *zap.Logger) *ProjectRegistrar {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	return &ProjectRegistrar{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
	}
}

type deviceModel struct {
	ProjectID     string   `json:"project_id"`
	DeviceModelID string   `json:"device_model_id"`
	Manifest      manifest `json:"manifest"`
	DeviceType    string   `json:"device_type"`
	Traits        []string `json:"traits"`
}

type manifest struct {
	Manufacturer      string `json:"manufacturer"`
	ProductName       string `json:"product_name"`
	DeviceDescription string `json:"device_description"`
}

type deviceInstance struct {
	ID         string `json:"id"`
	ModelID    string `json:"model_id"`
	Nickname   string `json:"nickname"`
	ClientType string `json:"clientType"`
}

type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Register implements repositories.Registrar
func (r *ProjectRegistrar) Register(ctx context.Context, accessToken string) error {
	r.logger.Info("Project registration started", zap.String("project", r.config.ProjectID))

	model := deviceModel{
		ProjectID:     r.config.ProjectID,
		DeviceModelID: r.config.ProjectID,
		Manifest: manifest{
			Manufacturer:      "Assistant SDK developer",
			ProductName:       "Assistant Bridge v1",
			DeviceDescription: "Assistant Bridge voice relay",
		},
		DeviceType: "action.devices.types.LIGHT",
		Traits:     []string{"action.devices.traits.OnOff"},
	}
	if err := r.post(ctx, accessToken, "deviceModels", model); err != nil {
		r.logger.Error("Got model register error", zap.Error(err))
		return fmt.Errorf("%w: %w", entities.ErrProjectDevice, err)
	}
	r.logger.Info("Got successful device model response")

	instance := deviceInstance{
		ID:         r.config.ProjectID,
		ModelID:    r.config.ProjectID,
		Nickname:   "Assistant Bridge v1",
		ClientType: "SDK_SERVICE",
	}
	if err := r.post(ctx, accessToken, "devices", instance); err != nil {
		r.logger.Error("Got instance register error", zap.Error(err))
		return fmt.Errorf("%w: %w", entities.ErrProjectInstance, err)
	}
	r.logger.Info("Got successful instance model response")

	return nil
}

func (r *ProjectRegistrar) post(ctx context.Context, accessToken, collection string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1alpha2/projects/%s/%s/", r.config.BaseURL, r.config.ProjectID, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var apiErr apiError
	if len(respBody) > 0 {
		json.Unmarshal(respBody, &apiErr)
	}

	if resp.StatusCode == http.StatusConflict || (apiErr.Error != nil && apiErr.Error.Code == http.StatusConflict) {
		r.logger.Info("Already registered", zap.String("collection", collection))
		return nil
	}
	if resp.StatusCode >= 300 || apiErr.Error != nil {
		if apiErr.Error != nil {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
