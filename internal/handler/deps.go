package handler

import (
	"github.com/xxxsen/docqa/internal/app"
	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/schedule"
	"github.com/xxxsen/docqa/internal/service"
)

// Deps is everything the commands need. It is built once per process,
// after flags have been parsed.
type Deps struct {
	Coordinator *app.Coordinator
	Uploads     func() *service.UploadControl
	Exports     *service.ExportService
	Scheduler   *schedule.CronScheduler
	Refresh     config.RefreshConfig
	Prompt      *Prompter
}

type DepsFunc func() (*Deps, error)
