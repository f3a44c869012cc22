package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/vescflow/pkg/vescflow"
)

func main() {
	cfg, err := vescflow.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := vescflow.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	rt.SubscribeFunc(func(snap vescflow.Snapshot, changed vescflow.ChangeSet) {
		fmt.Printf("%s changed=%s rpm=%d voltage=%.1fV duty=%.1f%% power=%.1fW\n",
			time.Now().Format("15:04:05.000"),
			changed,
			snap.RPM,
			snap.Voltage,
			snap.Duty*100,
			snap.Power(),
		)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
