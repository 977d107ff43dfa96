package bootstrap

import (
	"versailles-assistant/internal/common/logger"
	createplan "versailles-assistant/internal/workers/assistant/create-plan"
	plantools "versailles-assistant/internal/workers/assistant/plan-tools"
	retrieveevidence "versailles-assistant/internal/workers/assistant/retrieve-evidence"
	routequery "versailles-assistant/internal/workers/assistant/route-query"
	synthesizeanswer "versailles-assistant/internal/workers/assistant/synthesize-answer"
)

// Logger adapters for workers that declare their own Logger interfaces
type createPlanLoggerAdapter struct {
	logger.Logger
}

func (a *createPlanLoggerAdapter) With(fields map[string]interface{}) createplan.Logger {
	return &createPlanLoggerAdapter{a.Logger.With(fields)}
}

type retrieveEvidenceLoggerAdapter struct {
	logger.Logger
}

func (a *retrieveEvidenceLoggerAdapter) With(fields map[string]interface{}) retrieveevidence.Logger {
	return &retrieveEvidenceLoggerAdapter{a.Logger.With(fields)}
}

type synthesizeAnswerLoggerAdapter struct {
	logger.Logger
}

func (a *synthesizeAnswerLoggerAdapter) With(fields map[string]interface{}) synthesizeanswer.Logger {
	return &synthesizeAnswerLoggerAdapter{a.Logger.With(fields)}
}

type routeQueryLoggerAdapter struct {
	logger.Logger
}

func (a *routeQueryLoggerAdapter) With(fields map[string]interface{}) routequery.Logger {
	return &routeQueryLoggerAdapter{a.Logger.With(fields)}
}

type planToolsLoggerAdapter struct {
	logger.Logger
}

func (a *planToolsLoggerAdapter) With(fields map[string]interface{}) plantools.Logger {
	return &planToolsLoggerAdapter{a.Logger.With(fields)}
}
