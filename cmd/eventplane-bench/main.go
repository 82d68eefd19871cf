// Command eventplane-bench load-tests an event-plane deployment: it floods
// the streams with events from concurrent producers and reports append
// throughput and end-to-end dispatch latency.
package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/veristack/eventplane/internal/dispatcher"
	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/logging"
	"github.com/veristack/eventplane/internal/mq"
	"github.com/veristack/eventplane/internal/streamstore"
)

var (
	benchRedisAddr string
	benchStreamKey string
	benchGroup     string
	benchWorkers   int
	benchCount     int
	benchBroadcast bool
)

var rootCmd = &cobra.Command{
	Use:   "eventplane-bench",
	Short: "Event plane load generator",
	Long:  `Floods the event streams with synthetic events and reports append throughput and dispatch latency.`,
	RunE:  runBench,
}

func init() {
	rootCmd.Flags().StringVar(&benchRedisAddr, "redis-addr", "localhost:6379", "Redis address")
	rootCmd.Flags().StringVar(&benchStreamKey, "stream", "events-bench", "Base stream key to write to")
	rootCmd.Flags().StringVar(&benchGroup, "group", "bench", "Consumer group name")
	rootCmd.Flags().IntVar(&benchWorkers, "workers", 4, "Concurrent producers")
	rootCmd.Flags().IntVar(&benchCount, "count", 10000, "Events to publish per producer")
	rootCmd.Flags().BoolVar(&benchBroadcast, "broadcast", false, "Publish broadcast events instead of anycast")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBench(cmd *cobra.Command, args []string) error {
	logger, err := logging.New("warn", "console", "")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rdb := redis.NewClient(&redis.Options{Addr: benchRedisAddr})
	defer func() { _ = rdb.Close() }()

	store := streamstore.New(streamstore.NewGoRedisClient(rdb), logger)
	queue := mq.NewQueue(store, mq.Config{
		StreamKey:    benchStreamKey,
		GroupName:    benchGroup,
		BlockTimeout: 100 * time.Millisecond,
	}, logger)
	defer queue.Close()

	disp := dispatcher.New(queue, dispatcher.Config{GracePeriod: 5 * time.Second}, logger)
	producer := dispatcher.NewProducer(queue, "bench")

	total := int64(benchWorkers * benchCount)
	var received atomic.Int64
	done := make(chan struct{})
	handler := func(ctx context.Context, source string, ev event.Event) error {
		if received.Add(1) == total {
			close(done)
		}
		return nil
	}
	if benchBroadcast {
		disp.Subscribe(event.NameSessionStarted, handler)
	} else {
		disp.Consume(event.NameDoSchedule, handler)
	}
	disp.Start()
	defer disp.Close()

	// Let the reader loops attach before the flood starts; broadcast reads
	// begin at the stream tail.
	time.Sleep(500 * time.Millisecond)

	ctx := context.Background()
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < benchWorkers; w++ {
		g.Go(func() error {
			for i := 0; i < benchCount; i++ {
				var ev event.Event = event.DoSchedule{}
				if benchBroadcast {
					ev = event.SessionStarted{SessionID: "bench", Creator: "bench"}
				}
				if err := producer.Produce(gctx, ev); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("producers failed: %w", err)
	}
	appendDur := time.Since(start)

	select {
	case <-done:
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timed out: received %d of %d events", received.Load(), total)
	}
	totalDur := time.Since(start)

	logger.Info("benchmark finished")
	fmt.Printf("events:            %d\n", total)
	fmt.Printf("producers:         %d\n", benchWorkers)
	fmt.Printf("append time:       %s (%.0f ev/s)\n", appendDur.Round(time.Millisecond), float64(total)/appendDur.Seconds())
	fmt.Printf("end-to-end time:   %s (%.0f ev/s)\n", totalDur.Round(time.Millisecond), float64(total)/totalDur.Seconds())
	return nil
}
