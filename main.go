package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"qtrak/internal/clock"
	"qtrak/internal/config"
	"qtrak/internal/models"
	"qtrak/internal/report"
	"qtrak/internal/store"
	"qtrak/internal/tracking"
)

func main() {
	cfgPath := flag.String("config", "qtrak.yaml", "Config file path")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	exportPath := flag.String("export", "", "Write unit register report to this .xlsx or .csv file")
	showWarnings := flag.Bool("warnings", false, "Print active warnings")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("config load failed: ", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if v := os.Getenv("QTRAK_DB"); v != "" && *dbPath == "" {
		cfg.DBPath = v
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal("store init failed: ", err)
	}

	svc, err := tracking.NewService(st, clock.System{}, cfg.ActivityLimit)
	if err != nil {
		log.Fatal("service init failed: ", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	if err := svc.SeedRules(cfg.SeedRules); err != nil {
		log.Fatal("rule seed failed: ", err)
	}

	changed, errs := svc.RecomputeAlerts()
	for _, e := range errs {
		log.Printf("recompute: %v", e)
	}
	log.Printf("alert recompute complete: %d unit(s) changed", changed)

	printSummary(svc)

	if *showWarnings {
		for _, w := range svc.Warnings() {
			ack := ""
			if w.Acknowledged {
				ack = " (ack)"
			}
			fmt.Printf("  [%s] %s: %s%s\n", w.Severity, w.UnitID, w.Message, ack)
		}
	}

	if *exportPath != "" {
		if err := writeExport(svc, *exportPath); err != nil {
			log.Fatal("export failed: ", err)
		}
		log.Printf("report written to %s", *exportPath)
	}

	if n := svc.DiscardedIntervals(); n > 0 {
		log.Printf("duration sanity bound discarded %d interval(s); check clock/data quality", n)
	}
}

func printSummary(svc *tracking.Service) {
	d := svc.Dashboard()
	fmt.Printf("units: %d  overdue: %d  critical defects: %d  shipped this month: %d  quality efficiency: %d%%\n",
		d.TotalUnits, d.OverdueUnits, d.CriticalDefects, d.MonthlyShipped, d.QualityEfficiency)
	for _, s := range models.Stages {
		if d.StageCounts[s] == 0 {
			continue
		}
		fmt.Printf("  %-24s %3d  avg %.1fh\n", s.Label(), d.StageCounts[s], d.AvgStageHours[s])
	}
}

func writeExport(svc *tracking.Service, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	units := svc.Units(models.UnitFilter{})
	if strings.HasSuffix(path, ".csv") {
		return report.WriteUnitsCSV(f, units)
	}
	return report.WriteUnitsExcel(f, units, svc.Dashboard())
}
