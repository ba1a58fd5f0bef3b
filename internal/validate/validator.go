// Package validate judges whether a launched runtime actually produces usable
// output. The executor calls it once per attempt with a fixed synthetic
// request; a structural check on the returned artifact catches the classic
// failure mode of a runtime that is "up" but renders blank frames.
package validate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"webuictl/pkg/types"
)

// Validator classifies a ready child's output.
type Validator interface {
	Validate(ctx context.Context, baseURL string) types.Verdict
}

const (
	defaultPath   = "/sdapi/v1/txt2img"
	defaultPrompt = "a red apple on a wooden table"
)

// HTTPValidator issues one fixed generation request to the child's local API.
type HTTPValidator struct {
	Client *http.Client
	Path   string
	Prompt string
	Steps  int
	Width  int
	Height int
	Seed   int64
	Logger zerolog.Logger
}

// New returns an HTTPValidator with the standard synthetic request: a small,
// cheap render with a pinned seed so verdicts are reproducible.
func New(logger zerolog.Logger) *HTTPValidator {
	// Intentionally Timeout=0: callers pass context deadlines.
	return &HTTPValidator{
		Client: &http.Client{Timeout: 0},
		Path:   defaultPath,
		Prompt: defaultPrompt,
		Steps:  8,
		Width:  64,
		Height: 64,
		Seed:   1234,
		Logger: logger,
	}
}

type generateRequest struct {
	Prompt    string  `json:"prompt"`
	Steps     int     `json:"steps"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Seed      int64   `json:"seed"`
	CFGScale  float64 `json:"cfg_scale"`
	BatchSize int     `json:"batch_size"`
}

type generateResponse struct {
	Images []string `json:"images"`
}

func (v *HTTPValidator) Validate(ctx context.Context, baseURL string) types.Verdict {
	payload := generateRequest{
		Prompt:    v.Prompt,
		Steps:     v.Steps,
		Width:     v.Width,
		Height:    v.Height,
		Seed:      v.Seed,
		CFGScale:  7,
		BatchSize: 1,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+v.path(), bytes.NewReader(body))
	if err != nil {
		return types.VerdictError
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := v.Client.Do(req)
	if err != nil {
		v.Logger.Warn().Err(err).Msg("validator request failed")
		return types.VerdictError
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		v.Logger.Warn().Int("status", resp.StatusCode).Str("body", string(b)).Msg("validator http error")
		return types.VerdictError
	}
	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		v.Logger.Warn().Err(err).Msg("validator decode failed")
		return types.VerdictError
	}
	if len(gr.Images) == 0 {
		return types.VerdictError
	}
	raw, err := base64.StdEncoding.DecodeString(gr.Images[0])
	if err != nil {
		return types.VerdictError
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return types.VerdictError
	}
	if Degenerate(img) {
		v.Logger.Warn().Dur("elapsed", time.Since(start)).Msg("artifact is uniform; degenerate output")
		return types.VerdictDegenerate
	}
	v.Logger.Debug().Dur("elapsed", time.Since(start)).Msg("artifact passed structural check")
	return types.VerdictValid
}

func (v *HTTPValidator) path() string {
	if v.Path != "" {
		return v.Path
	}
	return defaultPath
}

// Fixed is a stub validator returning a constant verdict, for dry wiring and tests.
type Fixed types.Verdict

func (f Fixed) Validate(context.Context, string) types.Verdict { return types.Verdict(f) }

var _ Validator = (*HTTPValidator)(nil)
