package main

import (
	"fmt"
	"time"

	"dd-qualification/internal/common/camunda"
	"dd-qualification/internal/common/config"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/observability"
	"dd-qualification/internal/common/validation"
	"dd-qualification/internal/qualification"
	"dd-qualification/pkg/registry"

	cqs "dd-qualification/internal/workers/qualification/compute-qualification-score"
	gqs "dd-qualification/internal/workers/qualification/get-qualification-snapshot"
	rq "dd-qualification/internal/workers/qualification/refresh-qualification"
	vq "dd-qualification/internal/workers/qualification/validate-qualification"
)

// workerDef is one handler with the polling settings it runs under.
type workerDef struct {
	taskType      string
	enabled       bool
	maxJobsActive int
	timeout       time.Duration
	handler       camunda.JobHandler
}

func buildWorkers(cfg *config.Config, engine *qualification.Engine, validator *validation.Validator, deps dependencies, log logger.Logger) ([]workerDef, error) {
	compute, err := cqs.NewHandler(cqs.HandlerOptions{
		AppConfig: cfg, Scorer: engine, Validator: validator, Logger: log,
	})
	if err != nil {
		return nil, err
	}

	validate, err := vq.NewHandler(vq.HandlerOptions{
		AppConfig: cfg, Checker: engine, Validator: validator, Logger: log,
	})
	if err != nil {
		return nil, err
	}

	refreshOpts := rq.HandlerOptions{AppConfig: cfg, Refresher: engine, Validator: validator, Logger: log}
	if deps.cache != nil {
		refreshOpts.Snapshots = deps.cache
	}
	if deps.index != nil {
		refreshOpts.Findings = deps.index
	}
	if deps.notifier != nil {
		refreshOpts.Alerter = deps.notifier
	}
	refresh, err := rq.NewHandler(refreshOpts)
	if err != nil {
		return nil, err
	}

	snapshotOpts := gqs.HandlerOptions{AppConfig: cfg, Evaluator: engine, Validator: validator, Logger: log}
	if deps.cache != nil {
		snapshotOpts.Cache = deps.cache
	}
	snap, err := gqs.NewHandler(snapshotOpts)
	if err != nil {
		return nil, err
	}

	return []workerDef{
		{cqs.TaskType, compute.IsEnabled(), compute.GetConfig().MaxJobsActive, compute.GetConfig().Timeout, compute},
		{vq.TaskType, validate.IsEnabled(), validate.GetConfig().MaxJobsActive, validate.GetConfig().Timeout, validate},
		{rq.TaskType, refresh.IsEnabled(), refresh.GetConfig().MaxJobsActive, refresh.GetConfig().Timeout, refresh},
		{gqs.TaskType, snap.IsEnabled(), snap.GetConfig().MaxJobsActive, snap.GetConfig().Timeout, snap},
	}, nil
}

func startWorkers(cfg *config.Config, zb *camunda.Client, engine *qualification.Engine, validator *validation.Validator,
	reg *registry.ActivityRegistry, deps dependencies, obs *observability.Observability, log logger.Logger) ([]*camunda.CamundaWorker, error) {

	defs, err := buildWorkers(cfg, engine, validator, deps, log)
	if err != nil {
		return nil, err
	}

	var started []*camunda.CamundaWorker
	for _, def := range defs {
		if !def.enabled {
			log.Info("Worker disabled by configuration", map[string]interface{}{"worker": def.taskType})
			continue
		}

		// The broker lock must outlive the handler's own deadline.
		lock := def.timeout
		if activity, err := reg.FindByTaskType(def.taskType); err == nil {
			lock = activity.TimeoutDuration(lock)
			if lock < def.timeout {
				lock = def.timeout
			}
		} else {
			log.Warn("Task type missing from activity registry", map[string]interface{}{"worker": def.taskType})
		}

		started = append(started, camunda.NewWorker(zb.GetClient(), def.taskType, camunda.WorkerOptions{
			MaxJobsActive: def.maxJobsActive,
			Timeout:       lock,
			Observer:      obs,
		}, def.handler, log))
	}

	if len(started) == 0 {
		return nil, fmt.Errorf("no workers enabled")
	}
	log.Info("Workers registered", map[string]interface{}{"count": len(started)})
	return started, nil
}
