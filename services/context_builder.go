package services

import (
	"context"
	"log"
	"time"

	"quoteapi-server/models"
)

var (
	weekdayNamesEN = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	weekdayNamesCN = [7]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}
)

// ContextBuilder assembles the per-invocation variable bag. The clock is
// injectable for tests; production uses time.Now.
type ContextBuilder struct {
	aiConfig   AIConfigProvider
	apiBaseURL string
	now        func() time.Time
}

func NewContextBuilder(aiConfig AIConfigProvider, apiBaseURL string) *ContextBuilder {
	return &ContextBuilder{
		aiConfig:   aiConfig,
		apiBaseURL: apiBaseURL,
		now:        time.Now,
	}
}

// Build assembles a fresh context for one request. ownerID is the
// endpoint owner's id; the caller's identity never enters the context.
func (b *ContextBuilder) Build(ctx context.Context, meta models.RequestMeta, params map[string]interface{}, ownerID int64) models.RunContext {
	// Fixed +8h civil offset applied by explicit arithmetic, then
	// UTC field extraction, so the host timezone never leaks in.
	shifted := b.now().UTC().Add(8 * time.Hour)
	weekday := int(shifted.Weekday())

	if params == nil {
		params = map[string]interface{}{}
	}

	aiCfg, err := b.aiConfig.GetAIConfig(ctx)
	if err != nil {
		log.Printf("context builder: AI config unavailable: %v", err)
		aiCfg = models.AIConfig{}
	}

	return models.RunContext{
		CurrentDate:        shifted.Format("2006-01-02"),
		CurrentTime:        shifted.Format("15:04:05"),
		CurrentDatetime:    shifted.Format("2006-01-02T15:04:05.000Z"),
		CurrentTimestamp:   shifted.UnixMilli(),
		CurrentYear:        shifted.Year(),
		CurrentMonth:       int(shifted.Month()),
		CurrentDay:         shifted.Day(),
		CurrentHour:        shifted.Hour(),
		CurrentMinute:      shifted.Minute(),
		CurrentSecond:      shifted.Second(),
		CurrentWeekday:     weekday,
		CurrentWeekdayName: weekdayNamesEN[weekday],
		CurrentWeekdayCN:   weekdayNamesCN[weekday],
		IsWeekend:          weekday == 0 || weekday == 6,
		IsWeekday:          weekday >= 1 && weekday <= 5,

		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Referer:   meta.Referer,

		Params: params,

		EndpointUserID: ownerID,

		AIAPIURL:     aiCfg.APIURL,
		AIAPIKey:     aiCfg.APIKey,
		AIModel:      aiCfg.Model,
		AIConfigured: aiCfg.Configured(),

		APIBaseURL: b.apiBaseURL,
		CallDepth:  meta.CallDepth,
	}
}

// MergeParams merges body parameters over query parameters; body wins on
// key collision, non-colliding keys from both sides are retained.
func MergeParams(query map[string]interface{}, body map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(query)+len(body))
	for k, v := range query {
		merged[k] = v
	}
	for k, v := range body {
		merged[k] = v
	}
	return merged
}
