package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteapi-server/models"
)

type stubAIConfig struct {
	cfg models.AIConfig
	err error
}

func (s stubAIConfig) GetAIConfig(ctx context.Context) (models.AIConfig, error) {
	return s.cfg, s.err
}

func fixedBuilder(aiConfig AIConfigProvider, utc time.Time) *ContextBuilder {
	b := NewContextBuilder(aiConfig, "http://localhost:3077")
	b.now = func() time.Time { return utc }
	return b
}

func TestBuildShiftsClockEightHours(t *testing.T) {
	// 2025-03-01 20:30:45 UTC is 2025-03-02 04:30:45 in the shifted frame.
	utc := time.Date(2025, 3, 1, 20, 30, 45, 0, time.UTC)
	b := fixedBuilder(stubAIConfig{}, utc)

	rc := b.Build(context.Background(), models.RequestMeta{}, nil, 1)

	assert.Equal(t, "2025-03-02", rc.CurrentDate)
	assert.Equal(t, "04:30:45", rc.CurrentTime)
	assert.Equal(t, "2025-03-02T04:30:45.000Z", rc.CurrentDatetime)
	assert.Equal(t, utc.Add(8*time.Hour).UnixMilli(), rc.CurrentTimestamp)
	assert.Equal(t, 2025, rc.CurrentYear)
	assert.Equal(t, 3, rc.CurrentMonth)
	assert.Equal(t, 2, rc.CurrentDay)
	assert.Equal(t, 4, rc.CurrentHour)
	assert.Equal(t, 30, rc.CurrentMinute)
	assert.Equal(t, 45, rc.CurrentSecond)
}

func TestBuildWeekdayFields(t *testing.T) {
	// 2025-03-02 04:30 shifted is a Sunday.
	sunday := time.Date(2025, 3, 1, 20, 30, 0, 0, time.UTC)
	b := fixedBuilder(stubAIConfig{}, sunday)

	rc := b.Build(context.Background(), models.RequestMeta{}, nil, 1)
	assert.Equal(t, 0, rc.CurrentWeekday)
	assert.Equal(t, "Sunday", rc.CurrentWeekdayName)
	assert.Equal(t, "星期日", rc.CurrentWeekdayCN)
	assert.True(t, rc.IsWeekend)
	assert.False(t, rc.IsWeekday)

	// Two days later is a Tuesday.
	tuesday := sunday.Add(48 * time.Hour)
	rc = fixedBuilder(stubAIConfig{}, tuesday).Build(context.Background(), models.RequestMeta{}, nil, 1)
	assert.Equal(t, 2, rc.CurrentWeekday)
	assert.Equal(t, "Tuesday", rc.CurrentWeekdayName)
	assert.Equal(t, "星期二", rc.CurrentWeekdayCN)
	assert.False(t, rc.IsWeekend)
	assert.True(t, rc.IsWeekday)
}

func TestBuildHostTimezoneIndependent(t *testing.T) {
	// The same instant expressed in a different location must produce
	// identical context fields.
	utc := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC-7", -7*3600)

	a := fixedBuilder(stubAIConfig{}, utc).Build(context.Background(), models.RequestMeta{}, nil, 1)
	b := fixedBuilder(stubAIConfig{}, utc.In(loc)).Build(context.Background(), models.RequestMeta{}, nil, 1)
	assert.Equal(t, a, b)
}

func TestBuildCarriesMetaAndOwner(t *testing.T) {
	b := fixedBuilder(stubAIConfig{}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	meta := models.RequestMeta{
		IP:        "203.0.113.9",
		UserAgent: "curl/8.0",
		Referer:   "https://example.com/",
		CallDepth: 2,
	}
	rc := b.Build(context.Background(), meta, map[string]interface{}{"q": "x"}, 42)

	assert.Equal(t, "203.0.113.9", rc.IPAddress)
	assert.Equal(t, "curl/8.0", rc.UserAgent)
	assert.Equal(t, "https://example.com/", rc.Referer)
	assert.Equal(t, 2, rc.CallDepth)
	assert.Equal(t, int64(42), rc.EndpointUserID)
	assert.Equal(t, "http://localhost:3077", rc.APIBaseURL)
	assert.Equal(t, map[string]interface{}{"q": "x"}, rc.Params)
}

func TestBuildNilParamsBecomesEmptyMap(t *testing.T) {
	b := fixedBuilder(stubAIConfig{}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	rc := b.Build(context.Background(), models.RequestMeta{}, nil, 1)
	require.NotNil(t, rc.Params)
	assert.Empty(t, rc.Params)
}

func TestBuildAIConfig(t *testing.T) {
	cfg := models.AIConfig{APIURL: "https://api.example.com/v1", APIKey: "sk-test", Model: "gpt-4o-mini"}
	b := fixedBuilder(stubAIConfig{cfg: cfg}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	rc := b.Build(context.Background(), models.RequestMeta{}, nil, 1)
	assert.Equal(t, cfg.APIURL, rc.AIAPIURL)
	assert.Equal(t, cfg.APIKey, rc.AIAPIKey)
	assert.Equal(t, cfg.Model, rc.AIModel)
	assert.True(t, rc.AIConfigured)
}

func TestBuildAIConfigErrorDegrades(t *testing.T) {
	b := fixedBuilder(stubAIConfig{err: errors.New("db down")}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	rc := b.Build(context.Background(), models.RequestMeta{}, nil, 1)
	assert.False(t, rc.AIConfigured)
	assert.Empty(t, rc.AIAPIURL)
	assert.Empty(t, rc.AIAPIKey)
}

func TestMergeParamsBodyWins(t *testing.T) {
	query := map[string]interface{}{"a": "1", "b": "2"}
	body := map[string]interface{}{"b": float64(3), "c": float64(4)}

	merged := MergeParams(query, body)
	assert.Equal(t, map[string]interface{}{"a": "1", "b": float64(3), "c": float64(4)}, merged)

	// Inputs are not mutated.
	assert.Equal(t, map[string]interface{}{"a": "1", "b": "2"}, query)
}

func TestMergeParamsEmptySides(t *testing.T) {
	assert.Empty(t, MergeParams(nil, nil))
	assert.Equal(t, map[string]interface{}{"a": "1"}, MergeParams(map[string]interface{}{"a": "1"}, nil))
	assert.Equal(t, map[string]interface{}{"a": "1"}, MergeParams(nil, map[string]interface{}{"a": "1"}))
}
