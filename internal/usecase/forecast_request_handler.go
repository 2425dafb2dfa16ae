package usecase

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
	"FinCast/pkg/util"
)

// ForecastJobType is the queue message type carrying a models.ForecastJob.
const ForecastJobType = "forecast"

// ForecastRequestHandler computes forecasts for jobs arriving on a Kafka topic
// or the Redis job queue. A job whose prediction is already stored is
// acknowledged without retraining.
type ForecastRequestHandler struct {
	topic     string
	forecasts *ForecastService
	l         *applogger.Logger
}

var (
	_ pkgkafka.MessageHandler = (*ForecastRequestHandler)(nil)
	_ queue.Job               = (*ForecastRequestHandler)(nil)
)

func NewForecastRequestHandler(topic string, forecasts *ForecastService, l *applogger.Logger) *ForecastRequestHandler {
	return &ForecastRequestHandler{topic: topic, forecasts: forecasts, l: l.With(applogger.String("handler", "forecast_request"))}
}

func (h *ForecastRequestHandler) Topic() string { return h.topic }

func (h *ForecastRequestHandler) Name() string { return "forecast_request" }

func (h *ForecastRequestHandler) Type() string { return ForecastJobType }

// incoming message schema: {"symbol": "AAPL", "horizon": 30}
func (h *ForecastRequestHandler) Handle(ctx context.Context, b []byte) error {
	job, err := queue.ParsePayload[models.ForecastJob](b)
	if err != nil {
		return fmt.Errorf("decode forecast job: %w", err)
	}
	job.Symbol = util.NormalizeSymbol(job.Symbol)
	if err := xhttp.ValidateStruct(job); err != nil {
		return fmt.Errorf("invalid forecast job: %w", err)
	}

	p, err := h.forecasts.GetForecast(ctx, job.Symbol, job.Horizon)
	if err != nil {
		return err
	}
	h.l.Info("forecast job done",
		applogger.String("symbol", p.Symbol),
		applogger.Int("horizon", p.Horizon),
		applogger.String("prediction_id", p.ID),
		applogger.String("trace_id", pkgkafka.TraceID(ctx)))
	return nil
}
