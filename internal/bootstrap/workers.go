package bootstrap

import (
	"time"

	"versailles-assistant/internal/common/camunda"
	"versailles-assistant/internal/common/config"
	createplan "versailles-assistant/internal/workers/assistant/create-plan"
	plantools "versailles-assistant/internal/workers/assistant/plan-tools"
	retrieveevidence "versailles-assistant/internal/workers/assistant/retrieve-evidence"
	routequery "versailles-assistant/internal/workers/assistant/route-query"
	synthesizeanswer "versailles-assistant/internal/workers/assistant/synthesize-answer"
	"versailles-assistant/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// workerTimeout returns the configured job timeout for taskType, or def.
func (a *App) workerTimeout(taskType string, def time.Duration) time.Duration {
	if w, ok := a.Config.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return def
}

func (a *App) workerConfigCreatePlan() *createplan.Config {
	c := createplan.LoadConfig()
	c.Timeout = a.workerTimeout(createplan.TaskType, c.Timeout)
	return c
}

func (a *App) workerConfigRetrieveEvidence() *retrieveevidence.Config {
	c := retrieveevidence.LoadConfig()
	c.Timeout = a.workerTimeout(retrieveevidence.TaskType, c.Timeout)
	return c
}

func (a *App) workerConfigSynthesizeAnswer() *synthesizeanswer.Config {
	c := synthesizeanswer.LoadConfig()
	c.Timeout = a.workerTimeout(synthesizeanswer.TaskType, c.Timeout)
	return c
}

func (a *App) workerConfigRouteQuery() *routequery.Config {
	c := routequery.LoadConfig()
	c.Timeout = a.workerTimeout(routequery.TaskType, c.Timeout)
	return c
}

func (a *App) workerConfigPlanTools() *plantools.Config {
	c := plantools.LoadConfig()
	c.Timeout = a.workerTimeout(plantools.TaskType, c.Timeout)
	return c
}

// jobHandlers lists every stage that can run as a job worker, keyed by task type.
func (a *App) jobHandlers() map[string]camunda.JobHandler {
	return map[string]camunda.JobHandler{
		createplan.TaskType:       a.Planner,
		retrieveevidence.TaskType: a.Retriever,
		synthesizeanswer.TaskType: a.Synthesizer,
		routequery.TaskType:       a.Router,
		plantools.TaskType:        a.ToolPlanner,
	}
}

// RegisterWorkers opens a job worker for every enabled stage. Task types
// missing from reg are still registered but logged, so a stale registry
// shows up at startup.
func (a *App) RegisterWorkers(client zbc.Client, reg *registry.ActivityRegistry) []*camunda.CamundaWorker {
	var workers []*camunda.CamundaWorker
	for taskType, handler := range a.jobHandlers() {
		if !config.IsWorkerEnabled(a.Config, taskType) {
			a.Logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		if reg != nil {
			if _, ok := reg.Find(taskType); !ok {
				a.Logger.Warn("task type not in activity registry", map[string]interface{}{"taskType": taskType})
			}
		}

		wcfg := config.GetWorkerConfig(a.Config, taskType)
		w := camunda.NewWorker(client, taskType, wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handler, a.Observability, a.Logger)
		w.Start()
		workers = append(workers, w)
	}
	return workers
}
