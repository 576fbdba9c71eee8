package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lease-service/internal/model"
)

// DocumentVerifier asks a verification collaborator for a verdict on a
// stored document. Any error or timeout means the verdict stays
// unknown; the caller decides what that blocks.
type DocumentVerifier interface {
	Verify(ctx context.Context, ref string, kind model.DocumentKind) (*model.DocumentVerdict, error)
}

// HTTPVerifier calls an external verification service over HTTP.
type HTTPVerifier struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewHTTPVerifier creates a verifier client with the given timeout.
func NewHTTPVerifier(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

type verifyRequest struct {
	Ref  string `json:"ref"`
	Kind string `json:"kind"`
}

// Verify posts {ref, kind} and decodes the verdict.
func (v *HTTPVerifier) Verify(ctx context.Context, ref string, kind model.DocumentKind) (*model.DocumentVerdict, error) {
	body, err := json.Marshal(verifyRequest{Ref: ref, Kind: string(kind)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		v.Logger.Error("Verification request failed",
			zap.String("ref", ref),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		v.Logger.Error("Verification service returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(data)))
		return nil, fmt.Errorf("verification service: %d", resp.StatusCode)
	}

	var verdict model.DocumentVerdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, err
	}
	v.Logger.Info("Document verified",
		zap.String("ref", ref),
		zap.String("kind", string(kind)),
		zap.Float64("confidence", verdict.ConfidenceScore))
	return &verdict, nil
}
