package main

import (
	"log"
	"time"

	"Diligent/Config"
	"Diligent/CronJobs"
	"Diligent/FiberConfig"
	"Diligent/Models"
	"Diligent/Notifications"
)

func main() {
	Config.Load()

	if err := Models.Connect(Config.C.DatabaseDSN); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	dispatcher := Notifications.NewDispatcher(Models.DB)

	updater := CronJobs.NewStatusUpdater(Models.DB, Config.C.StatusSchedule)
	if err := updater.Start(); err != nil {
		log.Fatalf("Failed to start status updater: %v", err)
	}
	defer updater.Stop()

	sweeper := CronJobs.NewArchiveSweeper(Models.DB, time.Duration(Config.C.ArchiveAgeDays)*24*time.Hour)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start archive sweeper: %v", err)
	}
	defer sweeper.Stop()

	FiberConfig.FiberConfig(updater, sweeper, dispatcher)
}
