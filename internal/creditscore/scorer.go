package creditscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/identity"
)

var (
	// ErrUpstream reports a transport failure or non-2xx answer from the scoring service.
	ErrUpstream = errors.New("credit score service error")
	// ErrMissingScore reports a response without a usable score field.
	ErrMissingScore = errors.New("credit score missing from response")
)

// Scorer represents a connector to the remote credit-score model.
type Scorer interface {
	Score(ctx context.Context, req Request) (float64, error)
}

// Request is the payload the scoring model expects.
type Request struct {
	Year               string  `json:"year"`
	Country            string  `json:"country"`
	Region             string  `json:"region"`
	LandSize           float64 `json:"landSize"`
	SoilType           string  `json:"soilType"`
	PastYield          float64 `json:"pastYield"`
	CropTypes          string  `json:"cropTypes"`
	AnnualIncome       int64   `json:"annualIncome"`
	SoilPH             float64 `json:"soilPH"`
	NitrogenLevel      int     `json:"nitrogenLevel"`
	OrganicMatterLevel int     `json:"organicMatterLevel"`
	LandQualityScore   int     `json:"landQualityScore"`
	PastRainfall       float64 `json:"pastRainfall"`
	AvgTemperature     float64 `json:"avgTemperature"`
	CreditScore        float64 `json:"creditScore"`
}

// RequestFromProfile fills unset profile attributes with the model's defaults.
func RequestFromProfile(p identity.FarmProfile) Request {
	return Request{
		Year:               orString(p.Year, "2024"),
		Country:            orString(p.Country, "USA"),
		Region:             orString(p.Region, "Midwest"),
		LandSize:           orFloat(p.LandSize, 100.5),
		SoilType:           orString(p.SoilType, "Loamy"),
		PastYield:          orFloat(p.PastYield, 50.2),
		CropTypes:          orString(p.CropTypes, "Wheat"),
		AnnualIncome:       orInt64(p.AnnualIncome, 50000),
		SoilPH:             orFloat(p.SoilPH, 6.5),
		NitrogenLevel:      orInt(p.NitrogenLevel, 30),
		OrganicMatterLevel: orInt(p.OrganicMatterLevel, 20),
		LandQualityScore:   orInt(p.LandQualityScore, 85),
		PastRainfall:       orFloat(p.PastRainfall, 300.2),
		AvgTemperature:     orFloat(p.AvgTemperature, 25.5),
	}
}

// HTTPScorer posts requests to the scoring model over HTTP.
type HTTPScorer struct {
	url     string
	timeout time.Duration
}

const defaultScoreTimeout = 15 * time.Second

// NewHTTPScorer builds a scorer for the model at url. A non-positive timeout
// falls back to 15s so no request runs unbounded.
func NewHTTPScorer(url string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = defaultScoreTimeout
	}
	return &HTTPScorer{url: url, timeout: timeout}
}

// Score posts req and extracts the predicted score.
func (s *HTTPScorer) Score(ctx context.Context, req Request) (float64, error) {
	type result struct {
		code int
		body []byte
		errs []error
	}
	done := make(chan result, 1)
	go func() {
		code, body, errs := fiber.Post(s.url).Timeout(s.timeout).JSON(req).Bytes()
		done <- result{code: code, body: body, errs: errs}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
	}
	if len(res.errs) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, errors.Join(res.errs...))
	}
	if res.code < http.StatusOK || res.code >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("%w: status %d", ErrUpstream, res.code)
	}
	return parseScore(res.body)
}

func parseScore(body []byte) (float64, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingScore, err)
	}
	for _, key := range []string{"predicted_credit_score", "prediction"} {
		raw, ok := payload[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q is not numeric", ErrMissingScore, v)
			}
			return f, nil
		case []any:
			if len(v) > 0 {
				if f, ok := v[0].(float64); ok {
					return f, nil
				}
			}
		}
	}
	return 0, ErrMissingScore
}

// StaticScorer returns a fixed score without network access.
type StaticScorer struct {
	Value float64
}

func (s StaticScorer) Score(context.Context, Request) (float64, error) {
	return s.Value, nil
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orInt64(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}
