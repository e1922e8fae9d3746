package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gitfeed/internal"
	worker "gitfeed/pkg/worker"

	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	driver := flag.String("driver", "", "Override subscriber driver (amqp|nats|kafka|sql|gochannel)")
	flag.Parse()

	log.SetPrefix("gitfeed/feed-consumer ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subCfg, err := worker.LoadSubscriberConfig(*configPath)
	if err != nil {
		log.Fatalf("load subscriber config: %v", err)
	}
	if *driver != "" {
		subCfg.Driver = *driver
		subCfg.Drivers = nil
	}

	topics, err := worker.LoadTopicsFromConfig(*configPath)
	if err != nil {
		log.Fatalf("load topics: %v", err)
	}
	if len(topics) == 0 {
		topics = []string{"feed.events"}
	}

	sub, err := worker.BuildSubscriber(subCfg)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Printf("subscriber close: %v", err)
		}
	}()

	wk := worker.New(
		worker.WithSubscriber(sub),
		worker.WithTopics(topics...),
		worker.WithConcurrency(5),
		worker.WithListener(worker.Listener{
			OnStart: func(ctx context.Context) { log.Println("consumer started") },
			OnExit:  func(ctx context.Context) { log.Println("consumer stopped") },
			OnError: func(ctx context.Context, evt *worker.Event, err error) {
				log.Printf("consumer error: %v", err)
			},
		}),
	)

	for _, topic := range topics {
		wk.HandleTopic(topic, func(ctx context.Context, evt *worker.Event) error {
			if evt.Record == nil {
				log.Printf("topic=%s provider=%s type=%s (no record)", evt.Topic, evt.Provider, evt.Type)
				return nil
			}
			stored := internal.StoredEvent{ID: evt.EventID, CanonicalEvent: *evt.Record}
			log.Printf("topic=%s %s", evt.Topic, internal.FormatMessage(stored))
			return nil
		})
	}

	if err := wk.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
