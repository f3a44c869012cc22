package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ghalamif/vescflow"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, updates, closeUpdates := vescflow.NewChannelSubscriber(32)
	id := rt.Subscribe(sub)
	defer func() {
		rt.Unsubscribe(id)
		closeUpdates()
	}()

	go fanoutWorker("dashboard", updates)

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, updates <-chan vescflow.Update) {
	veh := vescflow.Vehicle{WheelDiameterM: 0.330, GearRatio: 1.0}
	for u := range updates {
		fmt.Printf("[%s] %s rpm=%d speed=%.1fkm/h wh=%.2f\n",
			name,
			u.Changed,
			u.Snapshot.RPM,
			veh.SpeedKPH(&u.Snapshot),
			u.Snapshot.WhConsumed,
		)
	}
}
